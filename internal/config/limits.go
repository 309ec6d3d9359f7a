package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFolderNameLength = 255

	// MaxStudyTitleLength is the maximum length for study titles.
	MaxStudyTitleLength = 255

	// MaxSourceNameLength is the maximum length for source display names.
	MaxSourceNameLength = 255

	// MaxSourceContentBytes bounds a single source's content (base64 included).
	MaxSourceContentBytes = 20 << 20

	// MaxUploadBytes bounds multipart source uploads before base64 encoding.
	MaxUploadBytes = 15 << 20

	// ExamNoteMaxChars caps each checkpoint note copied into a folder exam.
	ExamNoteMaxChars = 200

	// PromptContextMaxChars caps the study context sent for quiz and flashcard generation.
	PromptContextMaxChars = 30000

	// ChatHistoryWindow is how many previous chat messages are sent to the model.
	ChatHistoryWindow = 10

	// MaxQuizQuestions bounds a requested quiz size.
	MaxQuizQuestions = 50
)
