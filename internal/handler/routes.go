package handler

import "net/http"

// Handlers groups every resource handler served by the API.
type Handlers struct {
	Folder     *FolderHandler
	Tree       *TreeHandler
	Study      *StudyHandler
	Generation *GenerationHandler
	Assist     *AssistHandler
	Export     *ExportHandler
	Workspace  *WorkspaceHandler
}

// RegisterRoutes mounts the /api routes on mux (Go 1.22 method patterns).
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	// Folder routes
	mux.HandleFunc("GET /api/folders", h.Folder.ListFolders)
	mux.HandleFunc("POST /api/folders", h.Folder.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", h.Folder.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", h.Folder.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.Folder.DeleteFolder)
	mux.HandleFunc("POST /api/folders/{id}/exam", h.Folder.CreateExam)

	mux.HandleFunc("GET /api/tree", h.Tree.GetTree)

	// Study routes
	mux.HandleFunc("GET /api/studies", h.Study.ListStudies)
	mux.HandleFunc("POST /api/studies", h.Study.CreateStudy)
	mux.HandleFunc("POST /api/quick-start", h.Study.QuickStart)
	mux.HandleFunc("GET /api/studies/{id}", h.Study.GetStudy)
	mux.HandleFunc("PATCH /api/studies/{id}", h.Study.UpdateStudy)
	mux.HandleFunc("DELETE /api/studies/{id}", h.Study.DeleteStudy)
	mux.HandleFunc("POST /api/studies/{id}/sources", h.Study.AddSource)
	mux.HandleFunc("DELETE /api/studies/{id}/sources/{sourceId}", h.Study.RemoveSource)

	// Stored artifacts
	mux.HandleFunc("PUT /api/studies/{id}/guide", h.Study.PutGuide)
	mux.HandleFunc("DELETE /api/studies/{id}/guide", h.Study.DeleteGuide)
	mux.HandleFunc("PATCH /api/studies/{id}/guide/checkpoints/{index}", h.Study.UpdateCheckpoint)
	mux.HandleFunc("PUT /api/studies/{id}/slides", h.Study.PutSlides)
	mux.HandleFunc("DELETE /api/studies/{id}/slides", h.Study.DeleteSlides)
	mux.HandleFunc("PUT /api/studies/{id}/quiz", h.Study.PutQuiz)
	mux.HandleFunc("DELETE /api/studies/{id}/quiz", h.Study.DeleteQuiz)
	mux.HandleFunc("PUT /api/studies/{id}/flashcards", h.Study.PutFlashcards)
	mux.HandleFunc("DELETE /api/studies/{id}/flashcards", h.Study.DeleteFlashcards)

	// Generation
	mux.HandleFunc("POST /api/studies/{id}/guide/generate", h.Generation.GenerateGuide)
	mux.HandleFunc("POST /api/studies/{id}/guide/checkpoints/{index}/diagram", h.Generation.GenerateCheckpointDiagram)
	mux.HandleFunc("POST /api/studies/{id}/slides/generate", h.Generation.GenerateSlides)
	mux.HandleFunc("POST /api/studies/{id}/quiz/generate", h.Generation.GenerateQuiz)
	mux.HandleFunc("POST /api/studies/{id}/flashcards/generate", h.Generation.GenerateFlashcards)
	mux.HandleFunc("POST /api/studies/{id}/artifacts/generate", h.Generation.GenerateArtifacts)

	// Markdown notes
	mux.HandleFunc("GET /api/studies/{id}/export", h.Export.Export)
	mux.HandleFunc("POST /api/studies/{id}/import", h.Export.Import)

	// Assist
	mux.HandleFunc("POST /api/refine", h.Assist.Refine)
	mux.HandleFunc("POST /api/diagram", h.Assist.Diagram)
	mux.HandleFunc("POST /api/chat", h.Assist.Chat)
	mux.HandleFunc("GET /api/doi", h.Assist.LookupDOI)

	mux.HandleFunc("GET /api/workspace", h.Workspace.GetWorkspace)
	mux.HandleFunc("PUT /api/workspace", h.Workspace.PutWorkspace)
}
