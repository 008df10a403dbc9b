package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/pvpmeta/pvpmeta-server/internal/feed/mocks"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

type fakeAuditReader struct {
	record *status.AuditRecord
	err    error
}

func (f *fakeAuditReader) LastCompleted(_ context.Context, _ string) (*status.AuditRecord, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return f.record, f.record != nil, nil
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	fetchErr := syncerr.NewFetchError("great-league", "version marker", errors.New("timeout"))

	tests := []struct {
		name        string
		marker      string
		resolveErr  error
		audit       *fakeAuditReader
		wantChanged bool
		wantErr     bool
	}{
		{
			name:        "no completed update yet",
			marker:      "etag:\"abc\"",
			audit:       &fakeAuditReader{},
			wantChanged: true,
		},
		{
			name:        "same marker",
			marker:      "etag:\"abc\"",
			audit:       &fakeAuditReader{record: &status.AuditRecord{VersionMarker: "etag:\"abc\""}},
			wantChanged: false,
		},
		{
			name:        "new marker",
			marker:      "etag:\"def\"",
			audit:       &fakeAuditReader{record: &status.AuditRecord{VersionMarker: "etag:\"abc\""}},
			wantChanged: true,
		},
		{
			name:       "resolve failure",
			resolveErr: fetchErr,
			audit:      &fakeAuditReader{},
			wantErr:    true,
		},
		{
			name:    "audit read failure",
			marker:  "etag:\"abc\"",
			audit:   &fakeAuditReader{err: errors.New("database is locked")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			resolver := mocks.NewMockResolver(ctrl)
			resolver.EXPECT().ResolveVersionMarker(gomock.Any(), gomock.Any()).Return(tt.marker, tt.resolveErr)

			reg, err := source.NewRegistry(descriptor("great-league", source.KindRankings, 8))
			require.NoError(t, err)
			src, _ := reg.Get("great-league")

			d := NewDetector(resolver, tt.audit, reg, WithDetectorClock(clocktesting.NewFakePassiveClock(now)))

			assert.Equal(t, tt.wantChanged, d.Detect(context.Background(), src))

			after, _ := reg.Get("great-league")
			if tt.wantErr {
				assert.Nil(t, after.LastCheckedAt, "failed detection leaves the source untouched")
				return
			}
			require.NotNil(t, after.LastCheckedAt)
			assert.Equal(t, now, *after.LastCheckedAt)
		})
	}
}

func TestDetector_Check(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveVersionMarker(gomock.Any(), gomock.Any()).Return("sha256:new", nil)

	reg, err := source.NewRegistry(descriptor("gm", source.KindGamemaster, 10))
	require.NoError(t, err)
	src, _ := reg.Get("gm")

	d := NewDetector(resolver, &fakeAuditReader{record: &status.AuditRecord{VersionMarker: "sha256:old"}}, reg)

	det, err := d.Check(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, Detection{Changed: true, Current: "sha256:new", Previous: "sha256:old"}, det)
}

func TestDetector_UnknownSource(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveVersionMarker(gomock.Any(), gomock.Any()).Return("sha256:x", nil)

	reg, err := source.NewRegistry()
	require.NoError(t, err)

	d := NewDetector(resolver, &fakeAuditReader{}, reg)
	assert.False(t, d.Detect(context.Background(), descriptor("ghost", source.KindTiers, 6)))
}
