package uitest

// CSS selectors for the embedded dashboard pages. These track the element IDs
// in internal/app/static.

// Login page selectors.
const (
	SelectorLoginForm     = "#login-form"
	SelectorPasswordInput = "#password"
	SelectorLoginSubmit   = "#login-submit"
	SelectorLoginError    = "#login-error"
)

// Dashboard selectors.
const (
	SelectorStatusDot   = "#status-dot"
	SelectorStatusText  = "#status-text"
	SelectorLastSync    = "#last-sync"
	SelectorLogout      = "#logout"
	SelectorTaskForm    = "#task-form"
	SelectorTaskTitle   = "#task-title"
	SelectorTaskList    = "#tasks"
	SelectorTaskItem    = SelectorTaskList + " > li"
	SelectorNotes       = "#notes"
	SelectorNotesSave   = "#notes-save"
	SelectorNotesState  = "#notes-state"
	SelectorLogList     = "#log"
	SelectorLogItem     = SelectorLogList + " > li"
	SelectorContext     = "#context"
	SelectorContextText = "#context-text"
	SelectorArtifacts   = "#artifacts"
)

// textIncludes is a rod wait predicate, evaluated with the element as this,
// that holds once the element's text contains the first argument.
const textIncludes = `(text) => this.innerText.includes(text)`
