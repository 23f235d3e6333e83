package file

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
)

func TestFileSink_AppendsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "duo.ndjson")
	d := &driver{}
	require.NoError(t, d.Configure(Config{Path: path}))

	for _, ts := range []int64{1010, 1020} {
		ev := model.Event{Time: ts, Host: "h1", SourceType: "duo:telephony", Payload: json.RawMessage(`{"phone":"+1"}`)}
		require.NoError(t, d.Push(context.Background(), ev))
	}
	require.NoError(t, d.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var times []int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var got model.HECEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &got))
		assert.Equal(t, "duo:telephony", got.SourceType)
		times = append(times, got.Time)
	}
	assert.Equal(t, []int64{1010, 1020}, times)
}

func TestFileSink_RequiresPath(t *testing.T) {
	assert.Error(t, (&driver{}).Configure(Config{}))
}

func TestFileSink_PushBeforeConfigure(t *testing.T) {
	assert.Error(t, (&driver{}).Push(context.Background(), model.Event{}))
	assert.NoError(t, (&driver{}).Close())
}
