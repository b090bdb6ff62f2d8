package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/pseudonym"
	"pigmap/internal/repository"
	"pigmap/internal/sanitize"
	"pigmap/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	now         func() time.Time
}

func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		now:         time.Now,
	}
}

// Create stores a comment. The author is the pseudonym bound to the magic
// code when one is given, otherwise the free-text author. With neither, a
// new magic code and pseudonym are issued and the code is returned.
// Nothing is stored, pseudonym included, unless the comment is.
func (s *CommentService) Create(ctx context.Context, req model.CreateCommentRequest) (*model.CreateCommentResponse, error) {
	log := logging.Component("comment_service")

	req.Text = strings.TrimSpace(req.Text)
	req.Author = strings.TrimSpace(req.Author)
	req.MagicCode = strings.TrimSpace(req.MagicCode)
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	var issued string
	code := req.MagicCode
	if code == "" && req.Author == "" {
		var err error
		if code, err = pseudonym.MagicCode(model.MagicCodeLength); err != nil {
			return nil, fmt.Errorf("generate magic code: %w", err)
		}
		issued = code
	}

	comment := &model.Comment{
		ID:        uuid.NewString(),
		MarkerID:  req.MarkerID,
		Text:      sanitize.HTML(req.Text),
		CreatedAt: s.now().UTC(),
	}

	var err error
	if code != "" {
		// Generated names are drawn from fixed word lists and need no escaping.
		err = s.commentRepo.CreateWithPseudonym(ctx, comment, code, pseudonym.Name())
	} else {
		comment.Author = sanitize.HTML(req.Author)
		err = s.commentRepo.Create(ctx, comment)
	}
	if err != nil {
		log.Error().Err(err).Str("marker", req.MarkerID).Msg("Create FAILED")
		return nil, err
	}

	log.Info().Str("marker", req.MarkerID).Str("comment", comment.ID).Bool("issued_code", issued != "").Msg("Create OK")
	return &model.CreateCommentResponse{
		Success:   true,
		ID:        comment.ID,
		Comment:   comment,
		MagicCode: issued,
	}, nil
}

// ListByMarker returns a marker's comments, newest first.
func (s *CommentService) ListByMarker(ctx context.Context, markerID string) ([]model.Comment, error) {
	comments, err := s.commentRepo.ListByMarker(ctx, markerID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
