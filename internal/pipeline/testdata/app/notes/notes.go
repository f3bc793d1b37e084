package notes

import "context"

type Note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

type GetNoteRequest struct {
	ID string `json:"id"`
}

type CreateNoteRequest struct {
	Body string `json:"body"`
}

//api:route GET /notes/{id}
func GetNote(ctx context.Context, req GetNoteRequest) (Note, error) {
	return Note{ID: req.ID}, nil
}

//api:route POST /notes
func CreateNote(ctx context.Context, req CreateNoteRequest) (Note, error) {
	return Note{Body: req.Body}, nil
}
