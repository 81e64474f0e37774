package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/athena/internal/stats"
)

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1700000000000-0", f.err)
}

func TestPublishSeason(t *testing.T) {
	stream := &fakeStream{}
	pub := newPublisher(stream)
	pub.now = func() time.Time { return time.Date(2025, 1, 2, 4, 0, 0, 0, time.UTC) }

	id, err := pub.PublishSeason(context.Background(), SeasonUpdate{
		Season:     "2024-25",
		Year:       2025,
		SeasonType: stats.SeasonRegular,
		Mode:       stats.ModePerGame,
		Rows:       []stats.PlayerSeasonRow{{Player: "Guard"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-0", id)

	require.Len(t, stream.args, 1)
	args := stream.args[0]
	assert.Equal(t, SeasonStream, args.Stream)
	assert.True(t, args.Approx)
	assert.EqualValues(t, defaultMaxLen, args.MaxLen)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, "2024-25", values["season"])
	assert.Equal(t, "per-game", values["mode"])

	var decoded SeasonUpdate
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, "Guard", decoded.Rows[0].Player)
	assert.Equal(t, pub.now().Unix(), decoded.ComputedAt.Unix())
}

func TestPublishSeasonError(t *testing.T) {
	pub := newPublisher(&fakeStream{err: errors.New("NOAUTH")})

	_, err := pub.PublishSeason(context.Background(), SeasonUpdate{Season: "2024-25"})
	assert.ErrorContains(t, err, "NOAUTH")
}
