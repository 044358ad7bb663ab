package entries

// ActionKind discriminates the ToolUse.Action tagged union.
type ActionKind string

const (
	ActionFileRead        ActionKind = "file_read"
	ActionFileEdit        ActionKind = "file_edit"
	ActionCommandRun      ActionKind = "command_run"
	ActionSearch          ActionKind = "search"
	ActionWebFetch        ActionKind = "web_fetch"
	ActionTaskCreate      ActionKind = "task_create"
	ActionPlanPresent     ActionKind = "plan_presentation"
	ActionTodoManagement  ActionKind = "todo_management"
	ActionTool            ActionKind = "tool"
	ActionOther           ActionKind = "other"
)

// Action is a tagged union; exactly one of its typed fields is populated,
// selected by Kind. This mirrors the closed-sum-type-plus-Unknown-variant
// design called for by the engine's tool taxonomy: new tool kinds fall
// through to ActionTool/ActionOther rather than being dropped.
type Action struct {
	Kind ActionKind `json:"kind"`

	FileRead       *FileReadAction       `json:"file_read,omitempty"`
	FileEdit       *FileEditAction       `json:"file_edit,omitempty"`
	CommandRun     *CommandRunAction     `json:"command_run,omitempty"`
	Search         *SearchAction         `json:"search,omitempty"`
	WebFetch       *WebFetchAction       `json:"web_fetch,omitempty"`
	TaskCreate     *TaskCreateAction     `json:"task_create,omitempty"`
	PlanPresent    *PlanPresentAction    `json:"plan_presentation,omitempty"`
	TodoManagement *TodoManagementAction `json:"todo_management,omitempty"`
	Tool           *ToolAction           `json:"tool,omitempty"`
	Other          *OtherAction          `json:"other,omitempty"`
}

type FileReadAction struct {
	Path string `json:"path"`
}

// FileChangeKind discriminates FileChange variants.
type FileChangeKind string

const (
	FileChangeWrite  FileChangeKind = "write"
	FileChangeEdit   FileChangeKind = "edit"
	FileChangeDelete FileChangeKind = "delete"
	FileChangeRename FileChangeKind = "rename"
)

// FileChange is one of Write{content}, Edit{unified_diff,has_line_numbers},
// Delete, Rename{new_path}.
type FileChange struct {
	Kind FileChangeKind `json:"kind"`

	Content         string `json:"content,omitempty"`
	UnifiedDiff     string `json:"unified_diff,omitempty"`
	HasLineNumbers  bool   `json:"has_line_numbers,omitempty"`
	NewPath         string `json:"new_path,omitempty"`
}

func NewFileChangeWrite(content string) FileChange {
	return FileChange{Kind: FileChangeWrite, Content: content}
}

func NewFileChangeEdit(unifiedDiff string, hasLineNumbers bool) FileChange {
	return FileChange{Kind: FileChangeEdit, UnifiedDiff: unifiedDiff, HasLineNumbers: hasLineNumbers}
}

func NewFileChangeDelete() FileChange {
	return FileChange{Kind: FileChangeDelete}
}

func NewFileChangeRename(newPath string) FileChange {
	return FileChange{Kind: FileChangeRename, NewPath: newPath}
}

type FileEditAction struct {
	Path    string       `json:"path"`
	Changes []FileChange `json:"changes"`
}

// ExitStatus carries either a numeric exit code or a boolean success flag,
// matching the original's CommandExitStatus::ExitCode | Success union.
type ExitStatus struct {
	Code    *int  `json:"code,omitempty"`
	Success *bool `json:"success,omitempty"`
}

// CommandRunResult carries the exit status and optional combined output.
type CommandRunResult struct {
	ExitStatus *ExitStatus `json:"exit_status,omitempty"`
	Output     *string     `json:"output,omitempty"`
}

type CommandRunAction struct {
	Command string            `json:"command"`
	Result  *CommandRunResult `json:"result,omitempty"`
}

type SearchAction struct {
	Query string `json:"query"`
}

type WebFetchAction struct {
	URL string `json:"url"`
}

type TaskCreateAction struct {
	Description string `json:"description"`
}

type PlanPresentAction struct {
	Plan string `json:"plan"`
}

// TodoItem is one entry in a TodoManagement action.
type TodoItem struct {
	Content  string  `json:"content"`
	Status   string  `json:"status"`
	Priority *string `json:"priority,omitempty"`
}

type TodoManagementAction struct {
	Todos     []TodoItem `json:"todos"`
	Operation string     `json:"operation"`
}

// ToolResultValueKind discriminates how a tool result's value should be
// interpreted by UI consumers.
type ToolResultValueKind string

const (
	ToolResultMarkdown ToolResultValueKind = "markdown"
	ToolResultJSON      ToolResultValueKind = "json"
)

// ToolResultValue is the normalized value of an opaque/MCP tool result.
// See InferToolResultValue for the inference rule UI consumers depend on.
type ToolResultValue struct {
	Kind  ToolResultValueKind `json:"kind"`
	Value any                 `json:"value"`
}

type ToolAction struct {
	ToolName  string           `json:"tool_name"`
	Arguments any              `json:"arguments,omitempty"`
	Result    *ToolResultValue `json:"result,omitempty"`
}

type OtherAction struct {
	Description string `json:"description"`
}

func NewFileReadAction(path string) Action {
	return Action{Kind: ActionFileRead, FileRead: &FileReadAction{Path: path}}
}

func NewFileEditAction(path string, changes []FileChange) Action {
	return Action{Kind: ActionFileEdit, FileEdit: &FileEditAction{Path: path, Changes: changes}}
}

func NewCommandRunAction(command string, result *CommandRunResult) Action {
	return Action{Kind: ActionCommandRun, CommandRun: &CommandRunAction{Command: command, Result: result}}
}

func NewSearchAction(query string) Action {
	return Action{Kind: ActionSearch, Search: &SearchAction{Query: query}}
}

func NewWebFetchAction(url string) Action {
	return Action{Kind: ActionWebFetch, WebFetch: &WebFetchAction{URL: url}}
}

func NewTaskCreateAction(description string) Action {
	return Action{Kind: ActionTaskCreate, TaskCreate: &TaskCreateAction{Description: description}}
}

func NewPlanPresentAction(plan string) Action {
	return Action{Kind: ActionPlanPresent, PlanPresent: &PlanPresentAction{Plan: plan}}
}

func NewTodoManagementAction(todos []TodoItem, operation string) Action {
	return Action{Kind: ActionTodoManagement, TodoManagement: &TodoManagementAction{Todos: todos, Operation: operation}}
}

func NewToolAction(toolName string, arguments any, result *ToolResultValue) Action {
	return Action{Kind: ActionTool, Tool: &ToolAction{ToolName: toolName, Arguments: arguments, Result: result}}
}

func NewOtherAction(description string) Action {
	return Action{Kind: ActionOther, Other: &OtherAction{Description: description}}
}
