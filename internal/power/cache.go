// Package power computes the marginal effect of one vote in each district
// on a state's chamber outcome probability.
package power

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/voter-power/internal/metrics"
	"github.com/yourusername/voter-power/internal/models"
)

// Signature identifies races whose perturbation yields the same outcome delta
type Signature struct {
	Chamber      models.Chamber
	Margin       float64
	Weights      []float64
	Perturbation float64
}

// Key returns a canonical string form of the signature built from the exact
// bit patterns of its values
func (s Signature) Key() string {
	var b strings.Builder
	b.WriteString(string(s.Chamber))
	b.WriteByte('|')
	writeBits(&b, s.Margin)
	b.WriteByte('|')
	for i, w := range s.Weights {
		if i > 0 {
			b.WriteByte(',')
		}
		writeBits(&b, w)
	}
	b.WriteByte('|')
	writeBits(&b, s.Perturbation)
	return b.String()
}

func writeBits(b *strings.Builder, v float64) {
	if v == 0 {
		v = 0 // fold negative zero
	}
	b.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
}

// SignatureCache memoizes outcome deltas by signature for the lifetime of
// one state computation. Entries never expire.
type SignatureCache struct {
	cache     *cache.Cache
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewSignatureCache creates an empty, unbounded cache
func NewSignatureCache() *SignatureCache {
	return &SignatureCache{cache: cache.New(cache.NoExpiration, 0)}
}

// Get retrieves a cached delta
func (sc *SignatureCache) Get(sig Signature) (float64, bool) {
	if v, found := sc.cache.Get(sig.Key()); found {
		if delta, ok := v.(float64); ok {
			sc.hitCount.Add(1)
			metrics.RecordCacheHit()
			return delta, true
		}
	}
	sc.missCount.Add(1)
	metrics.RecordCacheMiss()
	return 0, false
}

// Set stores a delta
func (sc *SignatureCache) Set(sig Signature, delta float64) {
	sc.cache.Set(sig.Key(), delta, cache.NoExpiration)
}

// Len returns the number of distinct signatures stored
func (sc *SignatureCache) Len() int {
	return sc.cache.ItemCount()
}

// Flush empties the cache and resets its statistics
func (sc *SignatureCache) Flush() {
	sc.cache.Flush()
	sc.hitCount.Store(0)
	sc.missCount.Store(0)
}

// Stats returns cache statistics
func (sc *SignatureCache) Stats() (hits, misses uint64, ratio float64) {
	hits = sc.hitCount.Load()
	misses = sc.missCount.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}
