package credential

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	_, err := NewPool(nil)
	assert.ErrorIs(t, err, ErrNoCredentials)
	_, err = NewPool([]string{" ", ""})
	assert.ErrorIs(t, err, ErrNoCredentials)

	p, err := NewPool([]string{"a", " ", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, []string{p.Next(), p.Next(), p.Next(), p.Next(), p.Next()})
}

func TestPoolConcurrentNext(t *testing.T) {
	p, err := NewPool([]string{"a", "b"})
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		counts = map[string]int{}
		wg     sync.WaitGroup
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := p.Next()
			mu.Lock()
			counts[k]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, map[string]int{"a": 50, "b": 50}, counts)
}

func TestKeys(t *testing.T) {
	never := func(string) (string, error) {
		t.Fatal("prompt must not be called")
		return "", nil
	}

	keys, err := Keys([]string{"env1", "env2"}, "flag", never)
	require.NoError(t, err)
	assert.Equal(t, []string{"env1", "env2"}, keys)

	keys, err = Keys(nil, " flag ", never)
	require.NoError(t, err)
	assert.Equal(t, []string{"flag"}, keys)

	var asked string
	keys, err = Keys(nil, "", func(p string) (string, error) {
		asked = p
		return "typed\n", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"typed"}, keys)
	assert.Contains(t, asked, "API key")

	_, err = Keys(nil, "", nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = Keys(nil, "", func(string) (string, error) { return "  ", nil })
	assert.ErrorIs(t, err, ErrNoCredentials)

	boom := errors.New("boom")
	_, err = Keys(nil, "", func(string) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "****", Fingerprint("abc"))
	assert.Equal(t, "…wxyz", Fingerprint("secret-wxyz"))
}
