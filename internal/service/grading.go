// Package service orchestrates grading sessions: it ties uploads, source
// extraction, comparison, and persistence together behind one API used by
// both the REST server and the CLI.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/diffgrader/diffgrader/internal/archive"
	"github.com/diffgrader/diffgrader/internal/fileproc"
	"github.com/diffgrader/diffgrader/internal/store"
	"github.com/diffgrader/diffgrader/pkg/analyzer/comparison"
	"github.com/diffgrader/diffgrader/pkg/config"
	"github.com/diffgrader/diffgrader/pkg/feedback"
	"github.com/diffgrader/diffgrader/pkg/models"
	"github.com/diffgrader/diffgrader/pkg/scanner"
)

// Service orchestrates grading operations.
type Service struct {
	config  *config.Config
	db      *store.Store
	uploads *archive.Store
	log     zerolog.Logger

	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.log = logger
	}
}

// New creates a grading service.
func New(cfg *config.Config, db *store.Store, uploads *archive.Store, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Service{
		config:  cfg,
		db:      db,
		uploads: uploads,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until all background analyses finish. Used on shutdown and
// in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// SaveUpload stores an uploaded archive and records it in the database.
// Kind must be archive.KindStudent or archive.KindReference.
func (s *Service) SaveUpload(ctx context.Context, name, kind string, r io.Reader) (*archive.Upload, error) {
	if kind != archive.KindStudent && kind != archive.KindReference {
		return nil, fmt.Errorf("invalid upload kind %q, must be %s or %s", kind, archive.KindStudent, archive.KindReference)
	}
	up, err := s.uploads.Save(name, kind, r)
	if err != nil {
		return nil, err
	}
	if err := s.db.PutUpload(ctx, up); err != nil {
		return nil, err
	}
	s.log.Info().Str("upload_id", up.ID).Str("name", up.Name).Str("kind", up.Kind).Int64("size", up.Size).Msg("Upload stored")
	return up, nil
}

// GetUpload fetches an upload record.
func (s *Service) GetUpload(ctx context.Context, id string) (*archive.Upload, error) {
	return s.db.GetUpload(ctx, id)
}

// CreateSession creates a grading session for a student/reference upload
// pair and starts the analysis in the background. The returned session is
// in the created state; poll GetSession for progress.
func (s *Service) CreateSession(ctx context.Context, studentUploadID, referenceUploadID string) (*store.Session, error) {
	student, err := s.db.GetUpload(ctx, studentUploadID)
	if err != nil {
		return nil, fmt.Errorf("student upload: %w", err)
	}
	reference, err := s.db.GetUpload(ctx, referenceUploadID)
	if err != nil {
		return nil, fmt.Errorf("reference upload: %w", err)
	}

	id := sessionID(student.Digest, reference.Digest)
	sess, err := s.db.CreateSession(ctx, id, student.ID, reference.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("session_id", id).
		Str("student_upload", student.ID).
		Str("reference_upload", reference.ID).
		Msg("Grading session created")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context: analysis outlives the
		// HTTP request that started it.
		s.analyze(context.Background(), id, student, reference)
	}()

	return sess, nil
}

// GetSession fetches a session by ID.
func (s *Service) GetSession(ctx context.Context, id string) (*store.Session, error) {
	return s.db.GetSession(ctx, id)
}

// GetComparison returns the stored comparison for a ready session.
func (s *Service) GetComparison(ctx context.Context, sessionID string) (*comparison.Summary, error) {
	if _, err := s.db.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.db.GetComparison(ctx, sessionID)
}

// CompleteSession finalizes a session with the instructor's overall score
// and closing comments. Only ready sessions can complete.
func (s *Service) CompleteSession(ctx context.Context, id string, overallScore int, finalComments string) (*store.Session, error) {
	if overallScore < feedback.MinScore || overallScore > feedback.MaxScore {
		return nil, fmt.Errorf("overall score %d outside [%d,%d]", overallScore, feedback.MinScore, feedback.MaxScore)
	}
	sess, err := s.db.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != store.StatusReady {
		return nil, fmt.Errorf("session %s is %s, only ready sessions can be completed", id, sess.Status)
	}
	if err := s.db.CompleteSession(ctx, id, overallScore, finalComments); err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", id).Int("overall_score", overallScore).Msg("Grading session completed")
	return s.db.GetSession(ctx, id)
}

// analyze runs the full pipeline for a session. Failures return the
// session to the created state with the error recorded, so the client can
// retry with a fresh pair of uploads.
func (s *Service) analyze(ctx context.Context, id string, student, reference *archive.Upload) {
	started := time.Now()
	if err := s.db.UpdateSessionStatus(ctx, id, store.StatusAnalyzing, ""); err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Failed to mark session analyzing")
		return
	}

	summary, err := s.compare(ctx, student, reference)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Analysis failed")
		if uerr := s.db.UpdateSessionStatus(ctx, id, store.StatusCreated, err.Error()); uerr != nil {
			s.log.Error().Err(uerr).Str("session_id", id).Msg("Failed to record analysis error")
		}
		return
	}

	if err := s.db.PutComparison(ctx, id, summary); err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Failed to store comparison")
		_ = s.db.UpdateSessionStatus(ctx, id, store.StatusCreated, err.Error())
		return
	}
	if err := s.db.UpdateSessionStatus(ctx, id, store.StatusReady, ""); err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Failed to mark session ready")
		return
	}

	s.log.Info().Str("session_id", id).
		Dur("elapsed", time.Since(started)).
		Float64("overall_similarity", summary.OverallSimilarity).
		Int("matched", summary.MatchedCount).
		Msg("Analysis complete")
}

// compare extracts both uploads and runs the element comparison.
func (s *Service) compare(ctx context.Context, student, reference *archive.Upload) (*comparison.Summary, error) {
	studentElems, err := s.extractUpload(ctx, student)
	if err != nil {
		return nil, fmt.Errorf("student submission: %w", err)
	}
	referenceElems, err := s.extractUpload(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("reference solution: %w", err)
	}

	analyzer, err := comparison.New(
		comparison.WithThreshold(s.config.Analysis.SimilarityThreshold),
		comparison.WithExactThreshold(s.config.Analysis.ExactThreshold),
		comparison.WithWeights(s.config.Weights()),
	)
	if err != nil {
		return nil, err
	}
	return analyzer.Compare(ctx, studentElems, referenceElems)
}

// extractUpload unpacks an archive and extracts code elements from its
// Java sources.
func (s *Service) extractUpload(ctx context.Context, up *archive.Upload) ([]models.CodeElement, error) {
	dir, err := os.MkdirTemp("", "diffgrader-"+up.ID+"-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if _, err := archive.ExtractJava(up.Path, dir); err != nil {
		return nil, err
	}

	files, err := scanner.NewScanner(s.config).ScanDir(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("archive %s contains no Java sources", up.Name)
	}

	structures, procErrs := fileproc.ExtractAll(ctx, files, s.config.Analysis.Workers, nil)
	if procErrs != nil {
		return nil, procErrs
	}

	var elements []models.CodeElement
	for _, fs := range structures {
		elements = append(elements, fs.Elements...)
	}
	return elements, nil
}

// SubmitFeedback validates and stores instructor feedback for a session.
func (s *Service) SubmitFeedback(ctx context.Context, fb *store.Feedback) (*store.Feedback, error) {
	if err := feedback.Validate(fb.Score, fb.Comments, fb.DesignPattern, fb.BestPractices); err != nil {
		return nil, err
	}
	if _, err := s.db.GetSession(ctx, fb.SessionID); err != nil {
		return nil, err
	}
	return s.db.CreateFeedback(ctx, fb)
}

// ListFeedback returns all feedback for a session.
func (s *Service) ListFeedback(ctx context.Context, sessionID string) ([]store.Feedback, error) {
	if _, err := s.db.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.db.ListFeedback(ctx, sessionID)
}

// AverageFeedbackScore returns the mean feedback score for a session.
func (s *Service) AverageFeedbackScore(ctx context.Context, sessionID string) (float64, error) {
	if _, err := s.db.GetSession(ctx, sessionID); err != nil {
		return 0, err
	}
	return s.db.AverageFeedbackScore(ctx, sessionID)
}

// UpdateFeedback validates and updates existing feedback.
func (s *Service) UpdateFeedback(ctx context.Context, id int64, score int, comments, designPattern, bestPractices string) error {
	if err := feedback.Validate(score, comments, designPattern, bestPractices); err != nil {
		return err
	}
	return s.db.UpdateFeedback(ctx, id, score, comments, designPattern, bestPractices)
}

// DeleteFeedback removes feedback by ID.
func (s *Service) DeleteFeedback(ctx context.Context, id int64) error {
	return s.db.DeleteFeedback(ctx, id)
}

// SuggestFeedback builds an automatic grading suggestion for one element of
// a session's comparison. Element IDs take the form "student-N" or
// "reference-N", indexing into the stored summary.
func (s *Service) SuggestFeedback(ctx context.Context, sessionID, elementID string) (*feedback.Suggestion, error) {
	summary, err := s.GetComparison(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	el, err := elementByID(summary, elementID)
	if err != nil {
		return nil, err
	}
	return feedback.Suggest(el), nil
}

// elementByID resolves a "side-index" element reference in a summary.
func elementByID(summary *comparison.Summary, elementID string) (*models.CodeElement, error) {
	side, idxStr, ok := strings.Cut(elementID, "-")
	if !ok {
		return nil, fmt.Errorf("invalid element id %q", elementID)
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("invalid element id %q", elementID)
	}

	switch side {
	case "student":
		if idx >= len(summary.Student) {
			return nil, fmt.Errorf("element %s: %w", elementID, store.ErrNotFound)
		}
		return &summary.Student[idx], nil
	case "reference":
		if idx >= len(summary.Reference) {
			return nil, fmt.Errorf("element %s: %w", elementID, store.ErrNotFound)
		}
		return &summary.Reference[idx], nil
	default:
		return nil, fmt.Errorf("invalid element id %q", elementID)
	}
}

var sessionSeq atomic.Uint64

// sessionID derives a stable-length session identifier from the upload
// digests, the creation time, and a process-local sequence number.
func sessionID(studentDigest, referenceDigest string) string {
	h := blake3.New()
	h.Write([]byte(studentDigest))
	h.Write([]byte(referenceDigest))
	fmt.Fprintf(h, "%d:%d", time.Now().UnixNano(), sessionSeq.Add(1))
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum[:8])
}
