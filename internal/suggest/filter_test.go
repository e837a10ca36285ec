package suggest

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/tally/internal/storage"
)

func testStats(names ...string) []storage.TagStat {
	stats := make([]storage.TagStat, len(names))
	for i, name := range names {
		stats[i] = storage.TagStat{
			Tag:   storage.Tag{ID: int64(i + 1), QueueID: 1, Name: name},
			Count: len(names) - i,
		}
	}
	return stats
}

func statNames(stats []storage.TagStat) []string {
	names := make([]string, 0, len(stats))
	for _, s := range stats {
		names = append(names, s.Tag.Name)
	}
	return names
}

func TestFilter_EmptyUntilFirstUpdate(t *testing.T) {
	t.Parallel()

	all := testStats("work", "walk", "home")
	f := NewFilter(all)

	assert.Empty(t, f.Suggestions())
	_, ok := f.Query()
	assert.False(t, ok)

	// The empty query suggests every tag.
	assert.Equal(t, all, f.Update(""))
	q, ok := f.Query()
	assert.True(t, ok)
	assert.Equal(t, "", q)

	// The filter keeps its own copy.
	all[0].Tag.Name = "changed"
	assert.Equal(t, "work", f.Suggestions()[0].Tag.Name)
}

func TestFilter_EmptyQueryThenTyping(t *testing.T) {
	t.Parallel()

	f := NewFilter(testStats("work", "walk", "home"))

	f.Update("")
	assert.Equal(t, []string{"work", "walk"}, statNames(f.Update("w")))
	// "" is a prefix of "w", so typing narrows instead of rescanning.
	assert.Equal(t, 1, f.rescans)
}

func TestFilter_NarrowsOnExtension(t *testing.T) {
	t.Parallel()

	f := NewFilter(testStats("work", "walk", "workout", "home"))

	assert.Equal(t, []string{"work", "walk", "workout"}, statNames(f.Update("w")))
	assert.Equal(t, []string{"work", "workout"}, statNames(f.Update("wo")))
	assert.Equal(t, []string{"workout"}, statNames(f.Update("wo out")))
	assert.Equal(t, 1, f.rescans)

	q, ok := f.Query()
	assert.True(t, ok)
	assert.Equal(t, "wo out", q)
}

func TestFilter_RescansOnDeletion(t *testing.T) {
	t.Parallel()

	f := NewFilter(testStats("work", "walk", "home"))

	assert.Equal(t, []string{"work"}, statNames(f.Update("wor")))
	assert.Equal(t, []string{"work", "walk"}, statNames(f.Update("w")))
	assert.Equal(t, 2, f.rescans)
}

func TestFilter_UnchangedQueryDoesNoWork(t *testing.T) {
	t.Parallel()

	f := NewFilter(testStats("work", "walk"))

	f.Update("wa")
	f.Update("wa")
	f.Update("  WA ")
	assert.Equal(t, 1, f.rescans)
	assert.Equal(t, []string{"walk"}, statNames(f.Suggestions()))
}

func TestFilter_Reset(t *testing.T) {
	t.Parallel()

	f := NewFilter(testStats("work", "walk"))

	f.Update("wa")
	require.Equal(t, 1, f.Len())

	f.Reset()
	assert.Empty(t, f.Suggestions())
	assert.Equal(t, 0, f.Len())
	_, ok := f.Query()
	assert.False(t, ok)

	// After a reset the next query is scanned against the snapshot.
	assert.Equal(t, []string{"work"}, statNames(f.Update("wo")))
	assert.Equal(t, 2, f.rescans)
}

func TestFilter_KeepsSnapshotOrder(t *testing.T) {
	t.Parallel()

	all := testStats("zz-a", "aa-a", "mm-a")
	f := NewFilter(all)

	assert.Equal(t, []string{"zz-a", "aa-a", "mm-a"}, statNames(f.Update("a")))
}

// TestFilter_MatchesRescan types and deletes at random and checks every
// intermediate result against a full rescan of the snapshot.
func TestFilter_MatchesRescan(t *testing.T) {
	t.Parallel()

	all := testStats(
		"project-alpha-release", "project-beta", "alpha", "release notes",
		"deep focus", "focus", "work", "workout", "walk", "a", "aa", "aaa",
		"pro", "re lease", "alpha release", "beta alpha",
	)
	alphabet := []rune("aeloprstw -")

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		f := NewFilter(all)
		var typed []rune
		for step := 0; step < 60; step++ {
			switch {
			case len(typed) > 0 && rng.Intn(3) == 0:
				typed = typed[:len(typed)-rng.Intn(len(typed))-1]
			case rng.Intn(20) == 0:
				f.Reset()
				typed = typed[:0]
				require.Empty(t, f.Suggestions())
				continue
			default:
				typed = append(typed, alphabet[rng.Intn(len(alphabet))])
			}

			query := string(typed)
			got := f.Update(query)
			want := Rescan(all, query)
			require.Equal(t, statNames(want), statNames(got), "run %d step %d query %q", run, step, query)
		}
	}
}

func TestFilter_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	all := testStats("work", "walk", "workout", "home")
	f := NewFilter(all)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			queries := []string{"w", "wo", "wor", "h"}
			for j := 0; j < 100; j++ {
				f.Update(queries[(i+j)%len(queries)])
				_ = f.Suggestions()
			}
		}(i)
	}
	wg.Wait()

	q, ok := f.Query()
	require.True(t, ok)
	assert.Equal(t, statNames(Rescan(all, q)), statNames(f.Suggestions()))
}

func TestLimit(t *testing.T) {
	t.Parallel()

	stats := testStats("a", "b", "c")
	assert.Len(t, Limit(stats, 2), 2)
	assert.Len(t, Limit(stats, 5), 3)
	assert.Len(t, Limit(stats, 0), 3)
	assert.Empty(t, Limit(nil, 2))
}
