package checkpoint

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManagerAt(filepath.Join(t.TempDir(), "crawl.checkpoint.json")).WithLogger(logger.NewTestLogger())
}

func TestCheckpointManager(t *testing.T) {
	cities := []string{"Berlin", "São Paulo"}
	companies := []string{"Acme"}

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr := newTestManager(t)

		cp, err := mgr.Create("run1", cities, companies, 5)
		require.NoError(t, err)
		assert.Equal(t, Version, cp.Version)
		assert.False(t, cp.CreatedAt.IsZero())

		loaded, err := mgr.Load()
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "run1", loaded.RunID)
		assert.Equal(t, cities, loaded.Cities)
		assert.Equal(t, 5, loaded.PageLimit)
		assert.Nil(t, loaded.State)
		assert.Empty(t, loaded.Files)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		mgr := newTestManager(t)

		cp, err := mgr.Load()
		require.NoError(t, err)
		assert.Nil(t, cp)
		assert.False(t, mgr.Exists())
	})

	t.Run("UpdateKeepsCrawlState", func(t *testing.T) {
		mgr := newTestManager(t)
		cp, err := mgr.Create("run1", cities, companies, 0)
		require.NoError(t, err)

		state := models.NewCrawlState(models.SearchTarget{City: "São Paulo", Company: "Acme"})
		state.LastPage = 4
		state.PrefixURL = "https://site.test/search/results/people/?geo=sao-paulo"
		state.Record([]models.EmployeeRecord{models.NewEmployeeRecord("Ana", "Engineer")})
		state.Next()
		state.Status = models.StatusBlocked
		state.CheckpointPath = "/tmp/in_progress/sao-paulo_acme_page_1.json"

		files := []string{"/tmp/completed/2024-05-01_berlin_acme.json"}
		require.NoError(t, mgr.Update(cp, 1, state, files))

		// later changes to the live state do not leak into the checkpoint
		state.Next()
		files[0] = "changed"

		loaded, err := mgr.Load()
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, 1, loaded.TargetIndex)
		assert.Equal(t, []string{"/tmp/completed/2024-05-01_berlin_acme.json"}, loaded.Files)

		want := &models.CrawlState{
			Target:         models.SearchTarget{City: "São Paulo", Company: "Acme"},
			CurrentPage:    2,
			LastPage:       4,
			Collected:      []models.EmployeeRecord{models.NewEmployeeRecord("Ana", "Engineer")},
			CheckpointPath: "/tmp/in_progress/sao-paulo_acme_page_1.json",
			PrefixURL:      "https://site.test/search/results/people/?geo=sao-paulo",
			Status:         models.StatusBlocked,
		}
		if diff := cmp.Diff(want, loaded.State); diff != "" {
			t.Errorf("restored state mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr := newTestManager(t)
		_, err := mgr.Create("run1", cities, companies, 0)
		require.NoError(t, err)
		require.True(t, mgr.Exists())

		require.NoError(t, mgr.Delete())
		assert.False(t, mgr.Exists())

		// deleting twice is fine
		require.NoError(t, mgr.Delete())
	})

	t.Run("AtomicWrite", func(t *testing.T) {
		mgr := newTestManager(t)
		cp, err := mgr.Create("run1", cities, companies, 0)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			cp.TargetIndex = i
			require.NoError(t, mgr.Save(cp))
		}

		_, err = os.Stat(mgr.Path() + ".tmp")
		assert.True(t, os.IsNotExist(err))

		loaded, err := mgr.Load()
		require.NoError(t, err)
		assert.Equal(t, 9, loaded.TargetIndex)
	})

	t.Run("RejectsNewerVersion", func(t *testing.T) {
		mgr := newTestManager(t)
		require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"run_id":"x","version":99}`), 0644))

		_, err := mgr.Load()
		assert.ErrorContains(t, err, "newer than supported")
	})

	t.Run("RejectsCorruptFile", func(t *testing.T) {
		mgr := newTestManager(t)
		require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{not json`), 0644))

		_, err := mgr.Load()
		assert.ErrorContains(t, err, "failed to decode checkpoint")
	})
}

func TestMatches(t *testing.T) {
	cp := &Checkpoint{Cities: []string{"Berlin"}, Companies: []string{"Acme", "Globex"}, PageLimit: 3}

	assert.True(t, cp.Matches([]string{"Berlin"}, []string{"Acme", "Globex"}, 3))
	assert.False(t, cp.Matches([]string{"Berlin"}, []string{"Globex", "Acme"}, 3))
	assert.False(t, cp.Matches([]string{"Berlin"}, []string{"Acme", "Globex"}, 0))
	assert.False(t, cp.Matches([]string{"Paris"}, []string{"Acme", "Globex"}, 3))
}

func TestInfo(t *testing.T) {
	mgr := newTestManager(t)

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Nil(t, info)

	cp, err := mgr.Create("run1", []string{"Berlin"}, []string{"Acme"}, 0)
	require.NoError(t, err)
	state := models.NewCrawlState(models.SearchTarget{City: "Berlin", Company: "Acme"})
	state.Next()
	require.NoError(t, mgr.Update(cp, 0, state, nil))

	info, err = mgr.Info()
	require.NoError(t, err)
	assert.Equal(t, "run1", info["run_id"])
	assert.Equal(t, "Berlin/Acme", info["target"])
	assert.Equal(t, 2, info["page"])
	assert.Equal(t, 0, info["files"])
}

func TestNewManagerUsesDataDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_DATA_HOME is only honored on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	mgr, err := NewManager("crawl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "peoplescraper", "checkpoints", "crawl.checkpoint.json"), mgr.Path())
}
