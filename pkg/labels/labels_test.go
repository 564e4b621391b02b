package labels

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inatscraper/pkg/config"
	"inatscraper/pkg/storage"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		scientific string
		common     string
		want       string
	}{
		{"Amanita muscaria", "fly agaric", "Fly Agaric"},
		{"Boletus edulis", "  king bolete ", "King Bolete"},
		{"Russula sp.", "", "Russula sp."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.scientific, tt.common))
	}
}

func TestSetIndexesFollowInsertionOrder(t *testing.T) {
	s := NewSet(6973, 50814)
	s.Add(48715, "Amanita muscaria", "fly agaric", "Amanita_muscaria", 812)
	s.Add(48701, "Boletus edulis", "", "Boletus_edulis", 640)

	require.Len(t, s.Classes, 2)
	assert.Equal(t, 0, s.Classes[0].Index)
	assert.Equal(t, 1, s.Classes[1].Index)
	assert.Equal(t, "Amanita_muscaria", s.Classes[0].Directory)
	assert.Equal(t, "Boletus_edulis", s.Classes[1].Directory)
}

func TestSaveAndLoad(t *testing.T) {
	cfg := config.DefaultConfig().Output
	cfg.BaseDirectory = filepath.Join(t.TempDir(), "out")
	m, err := storage.NewManager(&cfg)
	require.NoError(t, err)

	s := NewSet(6973, 50814)
	s.Add(48715, "Amanita muscaria", "fly agaric", "Amanita_muscaria", 812)
	require.NoError(t, s.Save(m))

	loaded, err := Load(m)
	require.NoError(t, err)
	assert.Equal(t, 6973, loaded.PlaceID)
	require.Len(t, loaded.Classes, 1)
	assert.Equal(t, "Fly Agaric", loaded.Classes[0].DisplayName)
}
