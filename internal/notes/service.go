// Package notes is the staff notice board.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

const maxTitleLength = 200

type Service interface {
	Create(ctx context.Context, staffID uuid.UUID, input CreateInput) (*NoteDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*NoteDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*NoteDTO, error)
	List(ctx context.Context, search string, limit int) ([]NoteDTO, error)
}

type CreateInput struct {
	Title  string
	Body   string
	Pinned bool
}

type UpdateInput struct {
	Title  *string
	Body   *string
	Pinned *bool
}

type NoteDTO struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Pinned    bool       `json:"pinned"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type repository interface {
	Create(ctx context.Context, note *models.Note) error
	Save(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Note, error)
	List(ctx context.Context, search string, limit int) ([]models.Note, error)
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notes repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, staffID uuid.UUID, input CreateInput) (*NoteDTO, error) {
	note := &models.Note{
		Title:  strings.TrimSpace(input.Title),
		Body:   strings.TrimSpace(input.Body),
		Pinned: input.Pinned,
	}
	if staffID != uuid.Nil {
		note.CreatedBy = &staffID
	}
	if err := validateNote(note); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create note")
	}
	return toDTO(note), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*NoteDTO, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		note.Title = strings.TrimSpace(*input.Title)
	}
	if input.Body != nil {
		note.Body = strings.TrimSpace(*input.Body)
	}
	if input.Pinned != nil {
		note.Pinned = *input.Pinned
	}
	if err := validateNote(note); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update note")
	}
	return toDTO(note), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*NoteDTO, error) {
	note, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(note), nil
}

func (s *service) List(ctx context.Context, search string, limit int) ([]NoteDTO, error) {
	rows, err := s.repo.List(ctx, search, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notes")
	}
	out := make([]NoteDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return note, nil
}

func validateNote(note *models.Note) error {
	switch {
	case note.Title == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid note").
			WithDetails(map[string]string{"title": "required"})
	case len(note.Title) > maxTitleLength:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid note").
			WithDetails(map[string]string{"title": fmt.Sprintf("must be at most %d characters", maxTitleLength)})
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, ErrNoteNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "note not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load note")
}

func toDTO(n *models.Note) *NoteDTO {
	return &NoteDTO{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Pinned:    n.Pinned,
		CreatedBy: n.CreatedBy,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
