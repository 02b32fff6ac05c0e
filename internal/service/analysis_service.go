package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/nutriscan-backend/internal/logging"
	"github.com/nutriscan-backend/internal/metrics"
	"github.com/nutriscan-backend/internal/models"
	"github.com/nutriscan-backend/internal/predictor"
	"github.com/nutriscan-backend/internal/repository"
	"github.com/nutriscan-backend/internal/storage"
	"github.com/nutriscan-backend/pkg/keygen"
)

var (
	ErrNoImage      = errors.New("no food image supplied")
	ErrInvalidQuery = errors.New("invalid query parameters")
)

// maxPageSize caps the history page size regardless of what the
// request asked for.
const maxPageSize = 50

// AnalysisStore is the metadata access the pipeline needs. The
// two-record operations are transactional: they complete fully or
// leave nothing behind.
type AnalysisStore interface {
	CreateWithImage(ctx context.Context, img *models.FoodImage, analysis *models.Analysis) error
	DeleteWithImage(ctx context.Context, analysisID, userID uint) (*models.FoodImage, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	ListByUser(ctx context.Context, userID uint, opts repository.ListOptions) ([]models.Analysis, error)
	GetFoodImageByFileID(ctx context.Context, fileID string, userID uint) (*models.FoodImage, error)
}

// PredictionClient calls the external inference service.
type PredictionClient interface {
	Predict(ctx context.Context, image io.Reader, filename, condition string) (*predictor.Prediction, error)
}

// AnalysisService orchestrates the submission pipeline, history
// queries, deletion and image serving.
type AnalysisService struct {
	store AnalysisStore
	blobs storage.BlobStore
	model PredictionClient
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(store AnalysisStore, blobs storage.BlobStore, model PredictionClient) *AnalysisService {
	return &AnalysisService{store: store, blobs: blobs, model: model}
}

// Upload is one image received from the HTTP layer.
type Upload struct {
	FileName string
	Content  io.Reader
}

// FoodImageInfo is the public projection of a stored food image.
type FoodImageInfo struct {
	OriginalFileName string    `json:"originalFileName"`
	ImageEndpoint    string    `json:"imageEndpoint"`
	FileID           string    `json:"fileId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RecommendationData is the response payload of a submission.
type RecommendationData struct {
	MedicalCondition string                `json:"medicalCondition"`
	FoodImage        FoodImageInfo         `json:"foodImage"`
	Result           models.AnalysisResult `json:"result"`
}

// Submit runs the analysis pipeline: validate, store the blob, call
// the predictor, then insert the image + analysis pair in one
// transaction. The prediction happens before the transaction opens, so
// a failed prediction never leaves a record behind. Any failure after
// the blob write removes the blob again.
func (s *AnalysisService) Submit(ctx context.Context, userID uint, upload Upload, condition string) (*RecommendationData, error) {
	cond, err := NormalizeCondition(condition)
	if err != nil {
		return nil, err
	}
	if upload.Content == nil || upload.FileName == "" {
		return nil, ErrNoImage
	}

	img := &models.FoodImage{
		OriginalFileName: filepath.Base(upload.FileName),
		FileID:           keygen.NewFileID(),
		UserID:           userID,
	}
	name := img.StorageName()

	if err := s.blobs.Save(ctx, name, upload.Content); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	blob, _, err := s.blobs.Open(ctx, name)
	if err != nil {
		s.discardBlob(ctx, name)
		return nil, fmt.Errorf("reopen upload: %w", err)
	}
	done := metrics.TrackPrediction()
	pred, err := s.model.Predict(ctx, blob, img.OriginalFileName, cond)
	done()
	blob.Close()
	if err != nil {
		s.discardBlob(ctx, name)
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	analysis := &models.Analysis{
		UserID:           userID,
		MedicalCondition: cond,
		Result:           resultFromPrediction(pred),
	}
	if err := s.store.CreateWithImage(ctx, img, analysis); err != nil {
		s.discardBlob(ctx, name)
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	return &RecommendationData{
		MedicalCondition: FormatCondition(cond),
		FoodImage:        foodImageInfo(img),
		Result:           analysis.Result,
	}, nil
}

func resultFromPrediction(p *predictor.Prediction) models.AnalysisResult {
	return models.AnalysisResult{
		PredictedFood:         FoodLabel(p.PredictedClass),
		NutrientHighlights:    p.NutrientHighlights,
		Recommendation:        p.Recommendation,
		AlternativeSuggestion: p.AlternativeSuggestion,
		IsSafeForCondition:    p.IsSafeForCondition,
		SafetyMessage:         p.SafetyMessage,
		Message:               p.Message,
	}
}

func foodImageInfo(img *models.FoodImage) FoodImageInfo {
	return FoodImageInfo{
		OriginalFileName: img.OriginalFileName,
		ImageEndpoint:    img.Endpoint(),
		FileID:           img.FileID,
		CreatedAt:        img.CreatedAt,
	}
}

// discardBlob is the compensating cleanup for a failed submission.
// Best effort: a cleanup failure is logged, not retried.
func (s *AnalysisService) discardBlob(ctx context.Context, name string) {
	if err := s.blobs.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		logging.Error("cleanup of blob %s failed: %v", name, err)
	}
}

// HistoryQuery carries the history listing parameters. Zero values
// fall back to page 1, limit 10, createdAt descending.
type HistoryQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Pagination describes the returned page.
type Pagination struct {
	CurrentPage            int   `json:"currentPage"`
	TotalPages             int   `json:"totalPages"`
	TotalDocuments         int64 `json:"totalDocuments"`
	Limit                  int   `json:"limit"`
	HasNextPage            bool  `json:"hasNextPage"`
	HasPrevPage            bool  `json:"hasPrevPage"`
	NextPage               *int  `json:"nextPage"`
	PrevPage               *int  `json:"prevPage"`
	Skip                   int   `json:"skip"`
	DocumentsInCurrentPage int   `json:"documentsInCurrentPage"`
}

// HistoryItem is one analysis joined with its food image projection.
type HistoryItem struct {
	ID               uint                  `json:"id"`
	MedicalCondition string                `json:"medicalCondition"`
	Result           models.AnalysisResult `json:"result"`
	FoodImage        FoodImageInfo         `json:"foodImage"`
	CreatedAt        time.Time             `json:"createdAt"`
}

// HistoryData is the response payload of a history query.
type HistoryData struct {
	Histories  []HistoryItem `json:"histories"`
	Pagination Pagination    `json:"pagination"`
}

// sortColumns whitelists the sortable fields and maps them to their
// database columns.
var sortColumns = map[string]string{
	"createdAt":        "created_at",
	"medicalCondition": "medical_condition",
	"predictedFood":    "result_predicted_food",
}

// History returns one sorted page of the user's analyses. The page
// size is clamped to maxPageSize before any skip or page-count math.
func (s *AnalysisService) History(ctx context.Context, userID uint, q HistoryQuery) (*HistoryData, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 10
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}

	if q.Page < 1 || q.Limit < 1 {
		return nil, ErrInvalidQuery
	}
	column, ok := sortColumns[q.SortBy]
	if !ok {
		return nil, ErrInvalidQuery
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return nil, ErrInvalidQuery
	}

	limit := q.Limit
	if limit > maxPageSize {
		limit = maxPageSize
	}
	skip := (q.Page - 1) * limit

	total, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	analyses, err := s.store.ListByUser(ctx, userID, repository.ListOptions{
		SortColumn: column,
		SortOrder:  q.SortOrder,
		Offset:     skip,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(analyses))
	for i := range analyses {
		a := &analyses[i]
		items = append(items, HistoryItem{
			ID:               a.ID,
			MedicalCondition: a.MedicalCondition,
			Result:           a.Result,
			FoodImage:        foodImageInfo(&a.FoodImage),
			CreatedAt:        a.CreatedAt,
		})
	}

	return &HistoryData{
		Histories:  items,
		Pagination: BuildPagination(q.Page, limit, total, skip, len(items)),
	}, nil
}

// BuildPagination computes the page metadata for a listing.
func BuildPagination(page, limit int, total int64, skip, count int) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	p := Pagination{
		CurrentPage:            page,
		TotalPages:             totalPages,
		TotalDocuments:         total,
		Limit:                  limit,
		HasNextPage:            page < totalPages,
		HasPrevPage:            page > 1,
		Skip:                   skip,
		DocumentsInCurrentPage: count,
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPrevPage {
		prev := page - 1
		p.PrevPage = &prev
	}
	return p
}

// Delete removes one analysis, its food image record and the backing
// blob as a single logical operation, scoped to the requesting user.
// The documents go first, transactionally; the blob is removed after
// commit, and a failure there leaves an orphaned file rather than
// inconsistent records.
func (s *AnalysisService) Delete(ctx context.Context, analysisID, userID uint) error {
	img, err := s.store.DeleteWithImage(ctx, analysisID, userID)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, img.StorageName()); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		logging.Error("blob %s orphaned after analysis delete: %v", img.StorageName(), err)
	}
	return nil
}

// OpenImage resolves a file id to its blob, scoped to the owning user.
// Callers must close the returned reader.
func (s *AnalysisService) OpenImage(ctx context.Context, fileID string, userID uint) (*models.FoodImage, io.ReadCloser, int64, error) {
	img, err := s.store.GetFoodImageByFileID(ctx, fileID, userID)
	if err != nil {
		return nil, nil, 0, err
	}
	rc, size, err := s.blobs.Open(ctx, img.StorageName())
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, nil, 0, repository.ErrFoodImageNotFound
		}
		return nil, nil, 0, err
	}
	return img, rc, size, nil
}
