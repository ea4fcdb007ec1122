package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTranslator_Legacy(t *testing.T) {
	tr := Default()

	tests := []struct {
		legacyProp, currentProp string
		legacyItem, currentItem string
	}{
		{"CONNECTION", "CONNECTION", "CONNECT", "CONNECTED"},
		{"CONFIG_PROCESS", "CONFIG", "CONFIG_SAVE", "SAVE"},
		{"DRIVER_INFO", "DEVICE_INFO", "DRIVER_NAME", "NAME"},
		{"CCD1", "CCD_IMAGE", "CCD1", "IMAGE"},
		{"CCD_BINNING", "CCD_BIN", "VER_BIN", "HORIZONTAL"},
		{"FILTER_SLOT", "WHEEL_SLOT", "FILTER_SLOT_VALUE", "SLOT"},
		{"FILTER_NAME_VALUE", "WHEEL_SLOT_NAME", "FILTER_SLOT_NAME_3", "SLOT_NAME_3"},
		{"FOCUS_ABORT_MOTION", "FOCUSER_ABORT_MOTION", "ABORT", "ABORT_MOTION"},
		{"CCD_ABORT_EXPOSURE", "CCD_ABORT_EXPOSURE", "ABORT", "ABORT_EXPOSURE"},
		{"CCD_COOLER", "CCD_COOLER", "COOLER_ON", "ON"},
		{"EQUATORIAL_EOD_COORD", "MOUNT_EQUATORIAL_COORDINATES", "RA", "RA"},
	}

	for _, tt := range tests {
		t.Run(tt.legacyProp, func(t *testing.T) {
			assert.Equal(t, tt.currentProp, tr.CurrentPropertyName(Legacy, tt.legacyProp))
			assert.Equal(t, tt.legacyProp, tr.PropertyName(Legacy, tt.currentProp))
			assert.Equal(t, tt.currentItem, tr.CurrentItemName(Legacy, tt.currentProp, tt.legacyItem))
			assert.Equal(t, tt.legacyItem, tr.ItemName(Legacy, tt.currentProp, tt.currentItem))
		})
	}
}

func TestDefaultTranslator_IdentityWithoutLegacy(t *testing.T) {
	tr := Default()
	for _, v := range []Protocol{None, V2} {
		assert.Equal(t, "CONFIG_PROCESS", tr.CurrentPropertyName(v, "CONFIG_PROCESS"))
		assert.Equal(t, "CONFIG", tr.PropertyName(v, "CONFIG"))
		assert.Equal(t, "CONNECT", tr.CurrentItemName(v, "CONNECTION", "CONNECT"))
		assert.Equal(t, "CONNECTED", tr.ItemName(v, "CONNECTION", "CONNECTED"))
	}
}

func TestDefaultTranslator_PassThrough(t *testing.T) {
	tr := Default()
	assert.Equal(t, "TEST", tr.PropertyName(Legacy, "TEST"))
	assert.Equal(t, "TEST", tr.CurrentPropertyName(Legacy, "TEST"))
	assert.Equal(t, "UNKNOWN_ITEM", tr.ItemName(Legacy, "CONNECTION", "UNKNOWN_ITEM"))
	assert.Equal(t, "X", tr.CurrentItemName(Legacy, "TEST", "X"))
}

func TestDefaultTranslator_Involution(t *testing.T) {
	tr := Default()
	for _, current := range tr.Aliases() {
		legacy := tr.PropertyName(Legacy, current)
		require.Equal(t, current, tr.CurrentPropertyName(Legacy, legacy), "property %s", current)

		m := tr.byCurrent[current]
		for legacyItem, currentItem := range m.toCurrent {
			got := tr.ItemName(Legacy, current, tr.CurrentItemName(Legacy, current, legacyItem))
			require.Equal(t, legacyItem, got, "item %s.%s", current, currentItem)
		}
	}
}

func TestNewTranslator_Conflicts(t *testing.T) {
	t.Run("current property collision", func(t *testing.T) {
		_, err := NewTranslator(AliasTable{Properties: []PropertyAlias{
			{Legacy: "A", Current: "X"},
			{Legacy: "B", Current: "X"},
		}})
		require.True(t, errors.Is(err, ErrAliasConflict), "got %v", err)
	})

	t.Run("legacy property listed twice", func(t *testing.T) {
		_, err := NewTranslator(AliasTable{Properties: []PropertyAlias{
			{Legacy: "A", Current: "X"},
			{Legacy: "A", Current: "Y"},
		}})
		require.ErrorIs(t, err, ErrAliasConflict)
	})

	t.Run("item collision", func(t *testing.T) {
		_, err := NewTranslator(AliasTable{Properties: []PropertyAlias{
			{Legacy: "A", Current: "X", Items: map[string]string{"I": "Z", "J": "Z"}},
		}})
		require.ErrorIs(t, err, ErrAliasConflict)
	})
}

func TestLoadTranslator(t *testing.T) {
	tr, err := LoadTranslator([]byte(`
protocol: "1.7"
properties:
  - legacy: OLD
    current: NEW
    items:
      O1: N1
`))
	require.NoError(t, err)
	assert.Equal(t, "NEW", tr.CurrentPropertyName(Legacy, "OLD"))
	assert.Equal(t, "O1", tr.ItemName(Legacy, "NEW", "N1"))

	_, err = LoadTranslator([]byte("properties: [unterminated"))
	assert.Error(t, err)
}

func TestNilTranslatorPassesThrough(t *testing.T) {
	var tr *Translator
	assert.Equal(t, "CONFIG", tr.PropertyName(Legacy, "CONFIG"))
	assert.Equal(t, "CONFIG_PROCESS", tr.CurrentPropertyName(Legacy, "CONFIG_PROCESS"))
}
