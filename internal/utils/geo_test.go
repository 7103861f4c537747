package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMiles(t *testing.T) {
	// 同一点距离为零
	assert.Zero(t, HaversineMiles(31.0, 121.0, 31.0, 121.0))

	// 纬度一度约 69.09 英里
	assert.InDelta(t, 69.09, HaversineMiles(31.0, 121.0, 32.0, 121.0), 0.1)

	// 上海人民广场到虹桥机场约 9 英里
	assert.InDelta(t, 9.0, HaversineMiles(31.2304, 121.4737, 31.1979, 121.3363), 1.0)
}

func TestHaversineMiles_Symmetric(t *testing.T) {
	d1 := HaversineMiles(31.0, 121.0, 31.5, 121.5)
	d2 := HaversineMiles(31.5, 121.5, 31.0, 121.0)
	assert.Equal(t, d1, d2)
}
