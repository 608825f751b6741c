package acquire_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ytarchive/ytarchive/internal/acquire"
	"github.com/ytarchive/ytarchive/internal/event"
	"github.com/ytarchive/ytarchive/internal/media"
	"github.com/ytarchive/ytarchive/internal/provider"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

const playlistURL = "https://example.com/playlist?list=PL123"

type mockProvider struct {
	mock.Mock
}

func (mock *mockProvider) Extract(_ context.Context, url string, collection bool) (*media.Document, error) {
	args := mock.Called(url, collection)
	if v, ok := args.Get(0).(*media.Document); ok {
		return v, args.Error(1)
	}

	return nil, args.Error(1)
}

func (mock *mockProvider) Fetch(_ context.Context, url string, opts provider.Options) (string, error) {
	args := mock.Called(url, opts)
	return args.String(0), args.Error(1)
}

type mockPersister struct {
	mock.Mock
}

func (mock *mockPersister) Save(_ context.Context, table string, record *media.Record) error {
	return mock.Called(table, record).Error(0)
}

// eventRecorder collects every dispatched event. Safe for concurrent runs.
type eventRecorder struct {
	sync.Mutex
	events []event.HandlerEvent
}

func newEventRecorder() (*eventRecorder, event.EventCoordinator) {
	recorder := &eventRecorder{}
	bus := event.New()
	for _, e := range []event.Event{event.ITEM_DOWNLOADED, event.ITEM_PERSISTED, event.ITEM_FAILED, event.RUN_COMPLETE} {
		bus.RegisterHandlerFunction(e, func(e event.Event, p event.Payload) {
			recorder.Lock()
			defer recorder.Unlock()
			recorder.events = append(recorder.events, event.HandlerEvent{Event: e, Payload: p})
		})
	}

	return recorder, bus
}

func (r *eventRecorder) items(e event.Event) []event.ItemPayload {
	r.Lock()
	defer r.Unlock()

	var out []event.ItemPayload
	for _, ev := range r.events {
		if ev.Event == e {
			out = append(out, ev.Payload.(event.ItemPayload))
		}
	}

	return out
}

func itemDoc(n int) *media.Document {
	return &media.Document{
		Title:       fmt.Sprintf("Song %d (Official Video)", n),
		Duration:    100 + n,
		OriginalURL: entryURL(n),
	}
}

func entryURL(n int) string { return fmt.Sprintf("https://example.com/watch?v=%d", n) }

func newOrchestrator(p provider.Provider, persister acquire.Persister, bus event.EventDispatcher) *acquire.Orchestrator {
	return acquire.New(acquire.Config{OutputPath: "/out"}, p, persister, bus)
}

func Test_Classify(t *testing.T) {
	orchestrator := newOrchestrator(&mockProvider{}, nil, nil)

	assert.Equal(t, acquire.KindCollection, orchestrator.Classify(playlistURL, acquire.ModeAuto))
	assert.Equal(t, acquire.KindSingle, orchestrator.Classify(entryURL(1), acquire.ModeAuto))
	assert.Equal(t, acquire.KindSingle, orchestrator.Classify(playlistURL, acquire.ModeSingle))
	assert.Equal(t, acquire.KindCollection, orchestrator.Classify(entryURL(1), acquire.ModeCollection))

	custom := acquire.New(acquire.Config{CollectionMarker: "/sets/"}, &mockProvider{}, nil, nil)
	assert.Equal(t, acquire.KindCollection, custom.Classify("https://example.com/artist/sets/album", acquire.ModeAuto))
	assert.Equal(t, acquire.KindSingle, custom.Classify(playlistURL, acquire.ModeAuto))
}

func Test_Run_SingleItem_PersistsToSongs(t *testing.T) {
	p := &mockProvider{}
	store := &mockPersister{}
	recorder, bus := newEventRecorder()

	doc := &media.Document{
		Title: "Artist - Song (Official Audio)", Artists: []string{"Artist"}, Track: strPtr("Song (Remastered)"),
		Duration: 245.6, OriginalURL: entryURL(1),
	}
	p.On("Extract", entryURL(1), false).Return(doc, nil).Once()
	p.On("Fetch", entryURL(1), mock.MatchedBy(func(opts provider.Options) bool {
		return opts.Format == provider.AudioFormat &&
			opts.PostProcessing != nil &&
			strings.HasSuffix(opts.OutputTemplate, "Artist - Song.%(ext)s")
	})).Return("/out/Artist - Song.mp3", nil).Once()
	store.On("Save", media.SongsTable, mock.MatchedBy(func(r *media.Record) bool {
		return r.Filename == "Artist - Song" && r.Duration == 245 && r.Artists == media.Present("Artist") && r.Album.IsMissing()
	})).Return(nil).Once()

	report, err := newOrchestrator(p, store, bus).Run(context.Background(), entryURL(1), acquire.Options{AudioOnly: true, Persist: true})
	require.NoError(t, err)

	assert.Equal(t, acquire.KindSingle, report.Kind)
	assert.Equal(t, media.SongsTable, report.Table)
	require.Len(t, report.Items, 1)
	assert.Equal(t, acquire.StageDone, report.Items[0].Stage)
	assert.Equal(t, "/out/Artist - Song.mp3", report.Items[0].Path)
	assert.Empty(t, report.Failures())
	assert.Equal(t, 1, report.Persisted())

	assert.Len(t, recorder.items(event.ITEM_DOWNLOADED), 1)
	assert.Len(t, recorder.items(event.ITEM_PERSISTED), 1)
	assert.Empty(t, recorder.items(event.ITEM_FAILED))

	p.AssertExpectations(t)
	store.AssertExpectations(t)
}

func Test_Run_VideoModeUsesVideosTable(t *testing.T) {
	p := &mockProvider{}
	store := &mockPersister{}

	p.On("Extract", entryURL(1), false).Return(itemDoc(1), nil)
	p.On("Fetch", entryURL(1), mock.MatchedBy(func(opts provider.Options) bool {
		return opts.Format == provider.VideoFormat && opts.PostProcessing == nil
	})).Return("/out/Song 1.mp4", nil)
	store.On("Save", media.VideosTable, mock.Anything).Return(nil)

	report, err := newOrchestrator(p, store, nil).Run(context.Background(), entryURL(1), acquire.Options{Persist: true})
	require.NoError(t, err)
	assert.Equal(t, media.VideosTable, report.Table)

	store.AssertCalled(t, "Save", media.VideosTable, mock.Anything)
	store.AssertNotCalled(t, "Save", media.SongsTable, mock.Anything)
}

func Test_Run_Collection_OneExtractionFailureIsIsolated(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			p := &mockProvider{}
			store := &mockPersister{}
			recorder, bus := newEventRecorder()

			p.On("Extract", playlistURL, true).Return(&media.Document{
				Type:    "playlist",
				Entries: []*media.Document{{URL: entryURL(1)}, {URL: entryURL(2)}, {URL: entryURL(3)}},
			}, nil).Once()
			p.On("Extract", entryURL(1), false).Return(itemDoc(1), nil).Once()
			p.On("Extract", entryURL(2), false).Return(nil, errors.New("video unavailable")).Once()
			p.On("Extract", entryURL(3), false).Return(itemDoc(3), nil).Once()
			p.On("Fetch", mock.Anything, mock.Anything).Return("/out/file.mp3", nil)
			store.On("Save", media.SongsTable, mock.Anything).Return(nil)

			report, err := newOrchestrator(p, store, bus).Run(context.Background(), playlistURL,
				acquire.Options{AudioOnly: true, Persist: true, Concurrency: concurrency})
			require.NoError(t, err)

			assert.Equal(t, acquire.KindCollection, report.Kind)
			require.Len(t, report.Items, 3)
			for i, item := range report.Items {
				assert.Equal(t, i, item.Index, "results keep collection order")
				assert.Equal(t, entryURL(i+1), item.URL)
			}

			failures := report.Failures()
			require.Len(t, failures, 1)
			assert.Equal(t, entryURL(2), failures[0].URL)
			var extractionErr *acquire.ExtractionError
			assert.ErrorAs(t, failures[0].Err, &extractionErr)

			failed := recorder.items(event.ITEM_FAILED)
			require.Len(t, failed, 1, "exactly one failure is reported")
			assert.Equal(t, entryURL(2), failed[0].URL)

			store.AssertNumberOfCalls(t, "Save", 2)
			store.AssertCalled(t, "Save", media.SongsTable, mock.MatchedBy(func(r *media.Record) bool { return r.OriginalURL == entryURL(1) }))
			store.AssertCalled(t, "Save", media.SongsTable, mock.MatchedBy(func(r *media.Record) bool { return r.OriginalURL == entryURL(3) }))
			p.AssertNotCalled(t, "Fetch", entryURL(2), mock.Anything)
			assert.Equal(t, 2, report.Persisted())
		})
	}
}

func Test_Run_EmptyCollection(t *testing.T) {
	p := &mockProvider{}
	recorder, bus := newEventRecorder()
	p.On("Extract", playlistURL, true).Return(&media.Document{Type: "playlist", Entries: []*media.Document{}}, nil)

	report, err := newOrchestrator(p, &mockPersister{}, bus).Run(context.Background(), playlistURL, acquire.Options{Persist: true})
	require.NoError(t, err, "an empty collection is not an error")
	assert.Empty(t, report.Items)
	p.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	recorder.Lock()
	defer recorder.Unlock()
	require.Len(t, recorder.events, 1)
	assert.Equal(t, event.RUN_COMPLETE, recorder.events[0].Event)
}

func Test_Run_CollectionExtractionFailure(t *testing.T) {
	p := &mockProvider{}
	p.On("Extract", playlistURL, true).Return(nil, errors.New("playlist does not exist"))

	report, err := newOrchestrator(p, nil, nil).Run(context.Background(), playlistURL, acquire.Options{})
	assert.Nil(t, report)

	var extractionErr *acquire.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, playlistURL, extractionErr.URL)
}

func Test_Run_ForcedSingleIgnoresMarker(t *testing.T) {
	p := &mockProvider{}
	url := entryURL(1) + "&list=PL123"
	p.On("Extract", url, false).Return(itemDoc(1), nil).Once()
	p.On("Fetch", url, mock.Anything).Return("/out/Song 1.mp4", nil)

	report, err := newOrchestrator(p, nil, nil).Run(context.Background(), url, acquire.Options{Mode: acquire.ModeSingle})
	require.NoError(t, err)
	assert.Equal(t, acquire.KindSingle, report.Kind)
	p.AssertNotCalled(t, "Extract", url, true)
}

func Test_Run_FetchFailureSkipsPersistence(t *testing.T) {
	p := &mockProvider{}
	store := &mockPersister{}
	recorder, bus := newEventRecorder()

	p.On("Extract", entryURL(1), false).Return(itemDoc(1), nil)
	p.On("Fetch", entryURL(1), mock.Anything).Return("", errors.New("HTTP Error 403"))

	report, err := newOrchestrator(p, store, bus).Run(context.Background(), entryURL(1), acquire.Options{Persist: true})
	require.NoError(t, err)

	require.Len(t, report.Failures(), 1)
	item := report.Items[0]
	assert.Equal(t, acquire.StageFetch, item.Stage)
	assert.False(t, item.Downloaded)
	var fetchErr *acquire.FetchError
	assert.ErrorAs(t, item.Err, &fetchErr)

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, recorder.items(event.ITEM_DOWNLOADED))
	assert.Len(t, recorder.items(event.ITEM_FAILED), 1)
}

func Test_Run_SchemaErrorAfterDownload(t *testing.T) {
	p := &mockProvider{}
	store := &mockPersister{}

	broken := &media.Document{Title: "No Duration", OriginalURL: entryURL(1)}
	p.On("Extract", entryURL(1), false).Return(broken, nil)
	p.On("Fetch", entryURL(1), mock.Anything).Return("/out/No Duration.mp4", nil)

	report, err := newOrchestrator(p, store, nil).Run(context.Background(), entryURL(1), acquire.Options{Persist: true})
	require.NoError(t, err)

	item := report.Items[0]
	assert.True(t, item.Downloaded, "the download has still completed")
	assert.Equal(t, acquire.StageNormalize, item.Stage)
	var schemaErr *media.SchemaError
	require.ErrorAs(t, item.Err, &schemaErr)
	assert.Equal(t, "duration", schemaErr.Field)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func Test_Run_PersistenceFailureIsReported(t *testing.T) {
	p := &mockProvider{}
	store := &mockPersister{}

	p.On("Extract", entryURL(1), false).Return(itemDoc(1), nil)
	p.On("Fetch", entryURL(1), mock.Anything).Return("/out/Song 1.mp4", nil)
	store.On("Save", media.VideosTable, mock.Anything).Return(errors.New("disk full"))

	report, err := newOrchestrator(p, store, nil).Run(context.Background(), entryURL(1), acquire.Options{Persist: true})
	require.NoError(t, err)

	item := report.Items[0]
	assert.True(t, item.Downloaded)
	assert.False(t, item.Persisted)
	assert.Equal(t, acquire.StagePersist, item.Stage)
	assert.ErrorContains(t, item.Err, "disk full")
}

func Test_Run_WithoutPersistence(t *testing.T) {
	p := &mockProvider{}
	p.On("Extract", entryURL(1), false).Return(itemDoc(1), nil)
	p.On("Fetch", entryURL(1), mock.Anything).Return("/out/Song 1.mp4", nil)

	report, err := newOrchestrator(p, nil, nil).Run(context.Background(), entryURL(1), acquire.Options{})
	require.NoError(t, err)
	assert.Equal(t, acquire.StageDone, report.Items[0].Stage)
	assert.False(t, report.Items[0].Persisted)

	_, err = newOrchestrator(p, nil, nil).Run(context.Background(), entryURL(1), acquire.Options{Persist: true})
	assert.Error(t, err, "persistence without a store is rejected up front")
}

func Test_Run_WithoutPersistence_IgnoresSchemaErrors(t *testing.T) {
	p := &mockProvider{}
	broken := &media.Document{Title: "No Duration", OriginalURL: entryURL(1)}
	p.On("Extract", entryURL(1), false).Return(broken, nil)
	p.On("Fetch", entryURL(1), mock.Anything).Return("/out/No Duration.mp4", nil)

	report, err := newOrchestrator(p, nil, nil).Run(context.Background(), entryURL(1), acquire.Options{})
	require.NoError(t, err)
	assert.Equal(t, acquire.StageDone, report.Items[0].Stage)
	assert.NoError(t, report.Items[0].Err)
	assert.Empty(t, report.Failures())
}

func Test_Run_CancelledCollectionSkipsRemainingEntries(t *testing.T) {
	p := &mockProvider{}
	p.On("Extract", playlistURL, true).Return(&media.Document{
		Entries: []*media.Document{{URL: entryURL(1)}, {URL: entryURL(2)}},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newOrchestrator(p, nil, nil).Run(ctx, playlistURL, acquire.Options{})
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	for _, item := range report.Items {
		assert.Equal(t, acquire.StageSkipped, item.Stage)
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
	p.AssertNotCalled(t, "Extract", entryURL(1), false)
}

func Test_Run_PreflightFailureStopsRun(t *testing.T) {
	server := httptest.NewServer(nil)
	url := server.URL + "/watch?v=1"
	server.Close()

	p := &mockProvider{}
	_, err := newOrchestrator(p, nil, nil).Run(context.Background(), url, acquire.Options{PreflightCheck: true})

	var connErr *provider.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	p.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func strPtr(s string) *string { return &s }
