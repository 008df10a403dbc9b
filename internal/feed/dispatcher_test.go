package feed_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/feed/mocks"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

func rankingsSource(ep source.Endpoint) *source.Descriptor {
	return &source.Descriptor{
		ID:       "great-league",
		Name:     "Great League rankings",
		Kind:     source.KindRankings,
		Endpoint: ep,
		Scope:    source.Scope{League: "great", Cup: "all"},
		Interval: time.Hour,
		Priority: 8,
		Active:   true,
	}
}

func TestDispatcher_UnsupportedEndpoint(t *testing.T) {
	t.Parallel()

	d := feed.NewDispatcher(0)
	src := rankingsSource(source.Endpoint{Type: "ftp"})

	_, err := d.ResolveVersionMarker(context.Background(), src)
	var fetchErr *syncerr.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "great-league", fetchErr.SourceID)
	assert.Contains(t, err.Error(), "unsupported endpoint type: ftp")

	_, err = d.FetchPayload(context.Background(), src)
	require.ErrorAs(t, err, &fetchErr)
}

func TestDispatcher_WrapsHandlerErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	handler := mocks.NewMockHandler(ctrl)
	cause := errors.New("connection refused")

	handler.EXPECT().CurrentMarker(gomock.Any(), gomock.Any()).Return("", cause)
	handler.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, "", cause)

	d := feed.NewDispatcher(0, feed.WithHandler(config.EndpointTypeHTTP, handler))
	src := rankingsSource(source.Endpoint{Type: config.EndpointTypeHTTP, URL: "https://example.com/r.json"})

	_, err := d.ResolveVersionMarker(context.Background(), src)
	assert.True(t, syncerr.IsFetch(err))
	assert.ErrorIs(t, err, cause)

	_, err = d.FetchPayload(context.Background(), src)
	assert.True(t, syncerr.IsFetch(err))
	assert.ErrorIs(t, err, cause)
}

func TestDispatcher_EmptyMarker(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	handler := mocks.NewMockHandler(ctrl)
	handler.EXPECT().CurrentMarker(gomock.Any(), gomock.Any()).Return("", nil)

	d := feed.NewDispatcher(0, feed.WithHandler(config.EndpointTypeHTTP, handler))
	_, err := d.ResolveVersionMarker(context.Background(),
		rankingsSource(source.Endpoint{Type: config.EndpointTypeHTTP, URL: "https://example.com/r.json"}))
	require.Error(t, err)
	assert.True(t, syncerr.IsFetch(err))
	assert.Contains(t, err.Error(), "empty marker")
}

func TestDispatcher_FetchPayloadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "great.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0600))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := feed.NewDispatcher(0, feed.WithClock(clocktesting.NewFakePassiveClock(now)))
	src := rankingsSource(source.Endpoint{Type: config.EndpointTypeFile, Path: path})

	marker, err := d.ResolveVersionMarker(context.Background(), src)
	require.NoError(t, err)

	doc, err := d.FetchPayload(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, source.KindRankings, doc.Kind)
	assert.Equal(t, []byte(`[]`), doc.Body)
	assert.Equal(t, marker, doc.VersionMarker)
	assert.Equal(t, "file:"+path, doc.Location)
	assert.Equal(t, now, doc.FetchedAt)
}
