package dto

type IngestDocumentRequest struct {
	SourceDoc string `json:"source_doc" validate:"required,max=512"`
	Content   string `json:"content" validate:"required"`
}

type IngestDocumentResponse struct {
	SourceDoc string `json:"source_doc"`
	Chunks    int    `json:"chunks"`
}

// PublishEmbedChunksMessage is the payload on the embedding job topic. The
// consumer embeds every unprocessed chunk of the document.
type PublishEmbedChunksMessage struct {
	SourceDoc string `json:"source_doc"`
}

// PublishTrainModelMessage is the payload on the training job topic.
type PublishTrainModelMessage struct {
	SourceDoc string `json:"source_doc"`
}
