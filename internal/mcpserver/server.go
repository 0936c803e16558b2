package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"vnforge/internal/logging"
	"vnforge/internal/services"
	"vnforge/internal/studio"
)

const (
	serverName          = "vnforge"
	defaultHistoryLimit = 10
)

// Server wraps an MCP server whose tools call into a studio.
type Server struct {
	studio *studio.Studio
	logger *slog.Logger
	server *mcp.Server
}

// New registers every tool against st.
func New(st *studio.Studio, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		studio: st,
		logger: logging.NewComponentLogger(logger, "mcp"),
		server: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil),
	}
	s.register()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) register() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_project",
		Description: "Create a new Ren'Py project with images/ and scripts/ directories and a template script.",
	}, s.createProject)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List projects in the workspace.",
	}, s.listProjects)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_background",
		Description: "Generate a 16:9 background image and save it as images/bg_<name>.png.",
	}, s.generateBackground)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_character",
		Description: "Generate one sprite per emotion in a single image request, remove the background and save images/<name>_<emotion>.png.",
	}, s.generateCharacter)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_script",
		Description: "Save a Ren'Py script under scripts/ and link it from the main script while it is still the template.",
	}, s.generateScript)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_project",
		Description: "Compile the project for the web. Returns the full compiler log on success and failure.",
	}, s.buildProject)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_history",
		Description: "List recent builds, newest first.",
	}, s.buildHistory)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_web_preview",
		Description: "Serve the latest web build over HTTP. Idempotent per project.",
	}, s.startPreview)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stop_web_preview",
		Description: "Stop the project's preview server. Idempotent.",
	}, s.stopPreview)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "preview_status",
		Description: "Report the project's preview server state.",
	}, s.previewStatus)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_project_files",
		Description: "List image and script files in the project.",
	}, s.listFiles)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_project_file",
		Description: "Read a text file under images/ or scripts/.",
	}, s.readFile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "edit_project_file",
		Description: "Replace the content of a file under images/ or scripts/.",
	}, s.editFile)
}

func (s *Server) createProject(ctx context.Context, _ *mcp.CallToolRequest, in CreateProjectInput) (*mcp.CallToolResult, studio.ProjectResult, error) {
	res, err := s.studio.CreateProject(ctx, in.Name, in.Template)
	if err != nil {
		return nil, studio.ProjectResult{}, s.toolError(ctx, "create_project", err)
	}
	return nil, *res, nil
}

func (s *Server) listProjects(ctx context.Context, _ *mcp.CallToolRequest, _ ListProjectsInput) (*mcp.CallToolResult, ProjectsOutput, error) {
	infos, err := s.studio.ListProjects(ctx)
	if err != nil {
		return nil, ProjectsOutput{}, s.toolError(ctx, "list_projects", err)
	}
	return nil, ProjectsOutput{Projects: projectSummaries(infos)}, nil
}

func (s *Server) generateBackground(ctx context.Context, _ *mcp.CallToolRequest, in BackgroundInput) (*mcp.CallToolResult, studio.BackgroundResult, error) {
	res, err := s.studio.GenerateBackground(ctx, studio.BackgroundRequest{
		Project:     in.Project,
		Description: in.Description,
		Style:       in.Style,
		Name:        in.Name,
	})
	if err != nil {
		return nil, studio.BackgroundResult{}, s.toolError(ctx, "generate_background", err)
	}
	return nil, *res, nil
}

func (s *Server) generateCharacter(ctx context.Context, _ *mcp.CallToolRequest, in CharacterInput) (*mcp.CallToolResult, studio.CharacterResult, error) {
	res, err := s.studio.GenerateCharacter(ctx, studio.CharacterRequest{
		Project:     in.Project,
		Name:        in.Name,
		Description: in.Description,
		Emotions:    in.Emotions,
		Pose:        in.Pose,
		Style:       in.Style,
	})
	if err != nil {
		return nil, studio.CharacterResult{}, s.toolError(ctx, "generate_character", err)
	}
	return nil, *res, nil
}

func (s *Server) generateScript(ctx context.Context, _ *mcp.CallToolRequest, in ScriptInput) (*mcp.CallToolResult, studio.ScriptResult, error) {
	res, err := s.studio.GenerateScript(ctx, studio.ScriptRequest{
		Project: in.Project,
		Name:    in.Name,
		Content: in.Content,
	})
	if err != nil {
		return nil, studio.ScriptResult{}, s.toolError(ctx, "generate_script", err)
	}
	return nil, *res, nil
}

// buildProject reports compile failures as tool errors that still carry the
// structured result, so the log reaches the caller.
func (s *Server) buildProject(ctx context.Context, _ *mcp.CallToolRequest, in BuildInput) (*mcp.CallToolResult, BuildOutput, error) {
	res, err := s.studio.BuildProject(ctx, in.Project, in.Target)
	if err != nil {
		if res == nil {
			return nil, BuildOutput{}, s.toolError(ctx, "build_project", err)
		}
		s.logFailure(ctx, "build_project", err)
		out := buildOutput(res)
		text := fmt.Sprintf("%s: %v\n\n%s", services.Kind(err), err, res.Log)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, out, nil
	}
	return nil, buildOutput(res), nil
}

func (s *Server) buildHistory(ctx context.Context, _ *mcp.CallToolRequest, in HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	records, err := s.studio.BuildHistory(ctx, in.Project, limit)
	if err != nil {
		return nil, HistoryOutput{}, s.toolError(ctx, "build_history", err)
	}
	return nil, HistoryOutput{Builds: buildRecords(records)}, nil
}

func (s *Server) startPreview(ctx context.Context, _ *mcp.CallToolRequest, in ProjectInput) (*mcp.CallToolResult, PreviewOutput, error) {
	handle, err := s.studio.StartWebPreview(ctx, in.Project)
	if err != nil {
		return nil, PreviewOutput{}, s.toolError(ctx, "start_web_preview", err)
	}
	return nil, previewOutput(*handle), nil
}

func (s *Server) stopPreview(ctx context.Context, _ *mcp.CallToolRequest, in ProjectInput) (*mcp.CallToolResult, PreviewOutput, error) {
	handle, err := s.studio.StopWebPreview(ctx, in.Project)
	if err != nil {
		return nil, PreviewOutput{}, s.toolError(ctx, "stop_web_preview", err)
	}
	return nil, previewOutput(handle), nil
}

func (s *Server) previewStatus(_ context.Context, _ *mcp.CallToolRequest, in ProjectInput) (*mcp.CallToolResult, PreviewOutput, error) {
	return nil, previewOutput(s.studio.PreviewStatus(in.Project)), nil
}

func (s *Server) listFiles(ctx context.Context, _ *mcp.CallToolRequest, in ProjectInput) (*mcp.CallToolResult, FilesOutput, error) {
	files, err := s.studio.ListProjectFiles(ctx, in.Project)
	if err != nil {
		return nil, FilesOutput{}, s.toolError(ctx, "list_project_files", err)
	}
	return nil, FilesOutput{Project: in.Project, Files: fileSummaries(files)}, nil
}

func (s *Server) readFile(ctx context.Context, _ *mcp.CallToolRequest, in FileInput) (*mcp.CallToolResult, studio.FileContent, error) {
	content, err := s.studio.ReadProjectFile(ctx, in.Project, in.Path)
	if err != nil {
		return nil, studio.FileContent{}, s.toolError(ctx, "read_project_file", err)
	}
	return nil, *content, nil
}

func (s *Server) editFile(ctx context.Context, _ *mcp.CallToolRequest, in EditFileInput) (*mcp.CallToolResult, studio.FileContent, error) {
	content, err := s.studio.EditProjectFile(ctx, in.Project, in.Path, in.Content)
	if err != nil {
		return nil, studio.FileContent{}, s.toolError(ctx, "edit_project_file", err)
	}
	return nil, *content, nil
}

// toolError prefixes err with its kind label. The SDK turns returned errors
// into tool results with IsError set.
func (s *Server) toolError(ctx context.Context, tool string, err error) error {
	s.logFailure(ctx, tool, err)
	return fmt.Errorf("%s: %w", services.Kind(err), err)
}

func (s *Server) logFailure(ctx context.Context, tool string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "tool call failed", "tool_failed",
		logging.String("tool", tool),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
}
