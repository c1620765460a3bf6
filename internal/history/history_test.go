package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingEviction(t *testing.T) {
	l := NewLog("", 3)
	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		l.Record(float64(i*100), base.Add(time.Duration(i)*time.Second))
	}
	assert.Equal(t, 3, l.Len())

	l.mu.RLock()
	defer l.mu.RUnlock()
	assert.Equal(t, 200.0, l.points[0].Watts, "oldest entries evicted first")
	assert.Equal(t, 400.0, l.points[2].Watts)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")
	base := time.Unix(1700000000, 0)

	l := NewLog(path, 10)
	l.Record(230, base)
	l.Record(1200, base.Add(time.Second))
	require.NoError(t, l.Save())

	reloaded := NewLog(path, 10)
	assert.Equal(t, 2, reloaded.Len())
}

func TestLoadDiscardsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := NewLog(path, 10)
	assert.Equal(t, 0, l.Len())
}

func TestLoadTruncatesToWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	base := time.Unix(1700000000, 0)

	l := NewLog(path, 10)
	for i := 0; i < 10; i++ {
		l.Record(float64(i), base.Add(time.Duration(i)*time.Second))
	}
	require.NoError(t, l.Save())

	small := NewLog(path, 4)
	assert.Equal(t, 4, small.Len())
}

func TestRenderGraphDimensions(t *testing.T) {
	l := NewLog("", 10)
	img := l.RenderGraph(320, 120)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())

	base := time.Unix(1700000000, 0)
	l.Record(100, base)
	l.Record(900, base.Add(time.Second))
	l.Record(400, base.Add(2*time.Second))

	img = l.RenderGraph(320, 120)
	// Something got plotted.
	found := false
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+1] > 100 {
			found = true
			break
		}
	}
	assert.True(t, found)
}
