package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nutriscan-backend/internal/models"
	"github.com/nutriscan-backend/internal/predictor"
	"github.com/nutriscan-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobs is an in-memory blob store.
type fakeBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: map[string][]byte{}}
}

func (f *fakeBlobs) Save(_ context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[name] = data
	return nil
}

func (f *fakeBlobs) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[name]
	if !ok {
		return nil, 0, errBlobMissing
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blobs[name]; !ok {
		return errBlobMissing
	}
	delete(f.blobs, name)
	return nil
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

var errBlobMissing = errors.New("blob not found")

// fakeStore is an in-memory AnalysisStore with the same all-or-nothing
// behavior as the transactional repository.
type fakeStore struct {
	mu         sync.Mutex
	images     map[uint]models.FoodImage
	analyses   map[uint]models.Analysis
	nextID     uint
	failCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		images:   map[uint]models.FoodImage{},
		analyses: map[uint]models.Analysis{},
	}
}

func (f *fakeStore) CreateWithImage(_ context.Context, img *models.FoodImage, analysis *models.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("insert failed")
	}
	f.nextID++
	img.ID = f.nextID
	img.CreatedAt = time.Now()
	f.images[img.ID] = *img

	f.nextID++
	analysis.ID = f.nextID
	analysis.FoodImageID = img.ID
	analysis.CreatedAt = time.Now()
	f.analyses[analysis.ID] = *analysis
	return nil
}

func (f *fakeStore) DeleteWithImage(_ context.Context, analysisID, userID uint) (*models.FoodImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	analysis, ok := f.analyses[analysisID]
	if !ok || analysis.UserID != userID {
		return nil, repository.ErrAnalysisNotFound
	}
	img, ok := f.images[analysis.FoodImageID]
	if !ok {
		return nil, repository.ErrFoodImageNotFound
	}
	delete(f.analyses, analysisID)
	delete(f.images, img.ID)
	return &img, nil
}

func (f *fakeStore) CountByUser(_ context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, a := range f.analyses {
		if a.UserID == userID {
			total++
		}
	}
	return total, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uint, opts repository.ListOptions) ([]models.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Analysis
	for _, a := range f.analyses {
		if a.UserID != userID {
			continue
		}
		a.FoodImage = f.images[a.FoodImageID]
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch opts.SortColumn {
		case "medical_condition":
			less = out[i].MedicalCondition < out[j].MedicalCondition
		case "result_predicted_food":
			less = out[i].Result.PredictedFood < out[j].Result.PredictedFood
		default:
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if opts.SortOrder == "desc" {
			return !less
		}
		return less
	})

	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetFoodImageByFileID(_ context.Context, fileID string, userID uint) (*models.FoodImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, img := range f.images {
		if img.FileID == fileID && img.UserID == userID {
			return &img, nil
		}
	}
	return nil, repository.ErrFoodImageNotFound
}

// fakePredictor returns a fixed prediction and records what it was
// asked for.
type fakePredictor struct {
	pred         *predictor.Prediction
	err          error
	gotCondition string
	gotFilename  string
}

func (f *fakePredictor) Predict(_ context.Context, image io.Reader, filename, condition string) (*predictor.Prediction, error) {
	_, _ = io.Copy(io.Discard, image)
	f.gotFilename = filename
	f.gotCondition = condition
	if f.err != nil {
		return nil, f.err
	}
	return f.pred, nil
}

func steakPrediction() *predictor.Prediction {
	return &predictor.Prediction{
		PredictedClass:        "grilled_steak",
		Confidence:            92.5,
		NutrientHighlights:    "High in protein and iron",
		Recommendation:        "Consume with care",
		AlternativeSuggestion: "Grilled chicken breast",
		IsSafeForCondition:    true,
		SafetyMessage:         "You can consume this food but with caution for your medical condition.",
		Message:               "Prediction and health recommendation successful",
	}
}

func newTestService(store *fakeStore, blobs *fakeBlobs, model PredictionClient) *AnalysisService {
	return NewAnalysisService(store, blobs, model)
}

func submitUpload(content string) Upload {
	return Upload{FileName: "steak.jpg", Content: strings.NewReader(content)}
}

func TestSubmitCreatesLinkedRecordsAndBlob(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	model := &fakePredictor{pred: steakPrediction()}
	svc := newTestService(store, blobs, model)

	data, err := svc.Submit(context.Background(), 1, submitUpload("image-bytes"), "kidney_disease")
	require.NoError(t, err)

	// Exactly one image and one analysis, linked.
	require.Len(t, store.images, 1)
	require.Len(t, store.analyses, 1)
	var analysis models.Analysis
	for _, a := range store.analyses {
		analysis = a
	}
	img := store.images[analysis.FoodImageID]
	assert.Equal(t, uint(1), img.UserID)
	assert.Equal(t, uint(1), analysis.UserID)
	assert.Equal(t, "steak.jpg", img.OriginalFileName)

	// The blob backing the record exists under the derived name.
	assert.Equal(t, 1, blobs.count())
	rc, size, err := blobs.Open(context.Background(), img.StorageName())
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, int64(len("image-bytes")), size)

	// The predictor saw the stored bytes and the condition.
	assert.Equal(t, "kidney_disease", model.gotCondition)
	assert.Equal(t, "steak.jpg", model.gotFilename)

	// Response payload.
	assert.Equal(t, "Kidney Disease", data.MedicalCondition)
	assert.Equal(t, img.FileID, data.FoodImage.FileID)
	assert.Equal(t, "/image/"+img.FileID, data.FoodImage.ImageEndpoint)
	assert.Equal(t, "steak.jpg", data.FoodImage.OriginalFileName)
	assert.Equal(t, "Grilled Steak", data.Result.PredictedFood)
	assert.Equal(t, "Grilled Steak", analysis.Result.PredictedFood)
	assert.True(t, data.Result.IsSafeForCondition)
}

func TestSubmitDefaultsCondition(t *testing.T) {
	store := newFakeStore()
	model := &fakePredictor{pred: steakPrediction()}
	svc := newTestService(store, newFakeBlobs(), model)

	_, err := svc.Submit(context.Background(), 1, submitUpload("x"), "")
	require.NoError(t, err)

	assert.Equal(t, "diabetes", model.gotCondition)
	for _, a := range store.analyses {
		assert.Equal(t, "diabetes", a.MedicalCondition)
	}
}

func TestSubmitRejectsInvalidCondition(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	svc := newTestService(store, blobs, &fakePredictor{pred: steakPrediction()})

	_, err := svc.Submit(context.Background(), 1, submitUpload("x"), "???")
	assert.ErrorIs(t, err, ErrInvalidCondition)

	assert.Empty(t, store.analyses)
	assert.Empty(t, store.images)
	assert.Equal(t, 0, blobs.count())
}

func TestSubmitRejectsMissingImage(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeBlobs(), &fakePredictor{pred: steakPrediction()})

	_, err := svc.Submit(context.Background(), 1, Upload{}, "diabetes")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestSubmitPredictionFailureLeavesNothingBehind(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	svc := newTestService(store, blobs, &fakePredictor{err: errors.New("connection refused")})

	_, err := svc.Submit(context.Background(), 1, submitUpload("x"), "diabetes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prediction failed")

	assert.Empty(t, store.analyses)
	assert.Empty(t, store.images)
	assert.Equal(t, 0, blobs.count())
}

func TestSubmitPersistFailureCleansUpBlob(t *testing.T) {
	store := newFakeStore()
	store.failCreate = true
	blobs := newFakeBlobs()
	svc := newTestService(store, blobs, &fakePredictor{pred: steakPrediction()})

	_, err := svc.Submit(context.Background(), 1, submitUpload("x"), "diabetes")
	require.Error(t, err)

	assert.Empty(t, store.analyses)
	assert.Empty(t, store.images)
	assert.Equal(t, 0, blobs.count())
}

func seedAnalyses(t *testing.T, svc *AnalysisService, userID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.Submit(context.Background(), userID, Upload{
			FileName: fmt.Sprintf("meal-%02d.jpg", i),
			Content:  strings.NewReader("x"),
		}, "diabetes")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
}

func TestHistoryPagination(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBlobs(), &fakePredictor{pred: steakPrediction()})

	seedAnalyses(t, svc, 1, 12)
	seedAnalyses(t, svc, 2, 3) // another owner's records must not leak in

	data, err := svc.History(context.Background(), 1, HistoryQuery{Page: 2, Limit: 5})
	require.NoError(t, err)

	assert.Len(t, data.Histories, 5)
	assert.Equal(t, 2, data.Pagination.CurrentPage)
	assert.Equal(t, 3, data.Pagination.TotalPages)
	assert.Equal(t, int64(12), data.Pagination.TotalDocuments)
	assert.True(t, data.Pagination.HasNextPage)
	assert.True(t, data.Pagination.HasPrevPage)
	assert.Equal(t, 5, data.Pagination.Skip)
	assert.Equal(t, 5, data.Pagination.DocumentsInCurrentPage)

	// Joined food image projection is present.
	for _, item := range data.Histories {
		assert.NotEmpty(t, item.FoodImage.FileID)
		assert.Equal(t, "/image/"+item.FoodImage.FileID, item.FoodImage.ImageEndpoint)
	}
}

func TestHistoryDefaultSortIsNewestFirst(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBlobs(), &fakePredictor{pred: steakPrediction()})
	seedAnalyses(t, svc, 1, 3)

	data, err := svc.History(context.Background(), 1, HistoryQuery{})
	require.NoError(t, err)

	require.Len(t, data.Histories, 3)
	assert.True(t, data.Histories[0].CreatedAt.After(data.Histories[2].CreatedAt))
}

func TestHistoryClampsLimit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeBlobs(), &fakePredictor{pred: steakPrediction()})
	seedAnalyses(t, svc, 1, 2)

	data, err := svc.History(context.Background(), 1, HistoryQuery{Page: 1, Limit: 200})
	require.NoError(t, err)

	assert.Equal(t, 50, data.Pagination.Limit)
	assert.Equal(t, 1, data.Pagination.TotalPages)
}

func TestHistoryRejectsUnknownSort(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeBlobs(), &fakePredictor{pred: steakPrediction()})

	_, err := svc.History(context.Background(), 1, HistoryQuery{SortBy: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.History(context.Background(), 1, HistoryQuery{SortOrder: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestDeleteRemovesRecordsAndBlob(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	svc := newTestService(store, blobs, &fakePredictor{pred: steakPrediction()})

	_, err := svc.Submit(context.Background(), 1, submitUpload("x"), "diabetes")
	require.NoError(t, err)

	var analysisID uint
	for id := range store.analyses {
		analysisID = id
	}

	require.NoError(t, svc.Delete(context.Background(), analysisID, 1))

	assert.Empty(t, store.analyses)
	assert.Empty(t, store.images)
	assert.Equal(t, 0, blobs.count())
}

func TestDeleteUnknownIDMutatesNothing(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	svc := newTestService(store, blobs, &fakePredictor{pred: steakPrediction()})

	_, err := svc.Submit(context.Background(), 1, submitUpload("x"), "diabetes")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 9999, 1)
	assert.ErrorIs(t, err, repository.ErrAnalysisNotFound)

	assert.Len(t, store.analyses, 1)
	assert.Len(t, store.images, 1)
	assert.Equal(t, 1, blobs.count())
}

func TestDeleteIsScopedToOwner(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	svc := newTestService(store, blobs, &fakePredictor{pred: steakPrediction()})

	_, err := svc.Submit(context.Background(), 1, submitUpload("x"), "diabetes")
	require.NoError(t, err)

	var analysisID uint
	for id := range store.analyses {
		analysisID = id
	}

	err = svc.Delete(context.Background(), analysisID, 2)
	assert.ErrorIs(t, err, repository.ErrAnalysisNotFound)
	assert.Len(t, store.analyses, 1)
	assert.Equal(t, 1, blobs.count())
}

func TestOpenImageScopedToOwner(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	svc := newTestService(store, blobs, &fakePredictor{pred: steakPrediction()})

	data, err := svc.Submit(context.Background(), 1, submitUpload("image-bytes"), "diabetes")
	require.NoError(t, err)

	// Owner can read.
	img, rc, size, err := svc.OpenImage(context.Background(), data.FoodImage.FileID, 1)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(len("image-bytes")), size)
	assert.Equal(t, data.FoodImage.FileID, img.FileID)

	// A different user gets not-found, not forbidden.
	_, _, _, err = svc.OpenImage(context.Background(), data.FoodImage.FileID, 2)
	assert.ErrorIs(t, err, repository.ErrFoodImageNotFound)
}
