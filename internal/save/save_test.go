package save

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memDevice struct {
	buf []byte
}

func newMemDevice(size int) *memDevice { return &memDevice{buf: make([]byte, size)} }

func (m *memDevice) ReadBlock(offset int64, buf []byte) error {
	copy(buf, m.buf[offset:offset+int64(len(buf))])
	return nil
}

func (m *memDevice) WriteBlock(offset int64, buf []byte) error {
	copy(m.buf[offset:offset+int64(len(buf))], buf)
	return nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dev := newMemDevice(4 * SlotSize)
	store := NewStore(dev, 0, 4)

	ram := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	require.NoError(t, store.Save("TEST", ram))

	loaded, found, err := store.Load("TEST")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, ram, loaded)
}

func TestLoadMissingTitleReportsNotFound(t *testing.T) {
	dev := newMemDevice(4 * SlotSize)
	store := NewStore(dev, 0, 4)

	_, found, err := store.Load("NOPE")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSaveReusesMatchingSlotOnOverwrite(t *testing.T) {
	dev := newMemDevice(4 * SlotSize)
	store := NewStore(dev, 0, 4)

	require.NoError(t, store.Save("TEST", []byte{1, 2, 3}))
	require.NoError(t, store.Save("TEST", []byte{9, 9}))

	loaded, found, err := store.Load("TEST")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte{9, 9}, loaded)

	// only one slot should have been claimed
	idx, found, err := store.findSlot("OTHER")
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 1, idx) // slot 0 taken by TEST, slot 1 is first free
}

func TestStoreFullOverwritesSlotZero(t *testing.T) {
	dev := newMemDevice(2 * SlotSize)
	store := NewStore(dev, 0, 2)
	require.NoError(t, store.Save("A", []byte{1}))
	require.NoError(t, store.Save("B", []byte{2}))
	require.NoError(t, store.Save("C", []byte{3})) // store full: overwrites slot 0 (A)

	_, found, err := store.Load("A")
	require.NoError(t, err)
	require.False(t, found)

	loaded, found, err := store.Load("C")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte{3}, loaded)
}

func TestDebounceFiresAfterIdleWindow(t *testing.T) {
	var d Debounce
	require.False(t, d.Tick(true)) // dirty this frame: arms pending, resets idle

	for i := 0; i < DebounceFrames-1; i++ {
		require.False(t, d.Tick(false))
	}
	require.True(t, d.Tick(false)) // idle reached the debounce window
	require.False(t, d.Tick(false)) // pending cleared: no further save without new activity
}
