package boards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/logger"
	"github.com/fenghou-lab/hotpick/pkg/redis"
)

type fakeMarket struct {
	boards []contracts.Board
	err    error
	calls  int
}

func (f *fakeMarket) ListBoards(ctx context.Context) ([]contracts.Board, error) {
	f.calls++
	return f.boards, f.err
}

func (f *fakeMarket) ListConstituents(ctx context.Context, board contracts.Board) ([]contracts.Constituent, error) {
	return nil, nil
}

func (f *fakeMarket) GetSnapshot(ctx context.Context, code string) (contracts.Snapshot, error) {
	return nil, nil
}

func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return redis.NewCache(client, "test")
}

func newTestResolver(t *testing.T, names ...string) (*Resolver, *fakeMarket) {
	t.Helper()
	boards := make([]contracts.Board, 0, len(names))
	for i, n := range names {
		boards = append(boards, contracts.Board{
			Name: n,
			Code: "BK" + string(rune('0'+i%10)),
			Kind: contracts.BoardConcept,
		})
	}
	market := &fakeMarket{boards: boards}
	catalog := NewCatalog(market, disabledCache(t), time.Hour, logger.NewNop())
	return NewResolver(catalog, logger.NewNop()), market
}

func TestResolver_ExactMatchWinsOverAlias(t *testing.T) {
	// "人工智能" is in the alias table, but an exact catalog entry takes
	// precedence over everything.
	r, _ := newTestResolver(t, "AI算力", "人工智能")

	b, err := r.Resolve(context.Background(), "人工智能")
	require.NoError(t, err)
	assert.Equal(t, "人工智能", b.Name)
}

func TestResolver_AliasBeforeSubstring(t *testing.T) {
	// No exact "人工智能" board. The alias list prefers AI应用, AI算力, ...
	// in order; the first alias present in the catalog wins even though a
	// substring match ("人工智能概念") also exists.
	r, _ := newTestResolver(t, "人工智能概念", "AI芯片", "AI算力")

	b, err := r.Resolve(context.Background(), "人工智能")
	require.NoError(t, err)
	assert.Equal(t, "AI算力", b.Name)
}

func TestResolver_AliasSubstringFallback(t *testing.T) {
	// No alias name is present verbatim, but a board containing the first
	// matching alias keyword is.
	r, _ := newTestResolver(t, "新能源汽车零部件", "固态电池概念")

	b, err := r.Resolve(context.Background(), "新能源车")
	require.NoError(t, err)
	assert.Equal(t, "新能源汽车零部件", b.Name)
}

func TestResolver_ContainsPrefersShortestThenLex(t *testing.T) {
	r, _ := newTestResolver(t, "低空经济概念股", "低空经济", "低空经济II")

	b, err := r.Resolve(context.Background(), "低空")
	require.NoError(t, err)
	assert.Equal(t, "低空经济", b.Name)
}

func TestResolver_ContainsMeasuresLengthInCharacters(t *testing.T) {
	// "锂电池" is three characters but nine bytes; "BC电池" is four
	// characters but eight bytes. Length must be counted in characters or
	// the mixed-script name wins by accident.
	r, _ := newTestResolver(t, "BC电池", "锂电池")

	b, err := r.Resolve(context.Background(), "电池")
	require.NoError(t, err)
	assert.Equal(t, "锂电池", b.Name)
}

func TestResolver_ContainedInSectorPrefersLongest(t *testing.T) {
	// No board name contains the sector, but two board names appear inside
	// it; the longest wins.
	r, _ := newTestResolver(t, "半导体", "半导体材料")

	b, err := r.Resolve(context.Background(), "国产半导体材料自主可控")
	require.NoError(t, err)
	assert.Equal(t, "半导体材料", b.Name)
}

func TestResolver_NoMatch(t *testing.T) {
	r, _ := newTestResolver(t, "白酒", "银行")

	_, err := r.Resolve(context.Background(), "量子计算")
	assert.ErrorIs(t, err, ErrNoBoardMatch)
}

func TestResolver_EmptySector(t *testing.T) {
	r, _ := newTestResolver(t, "白酒")

	_, err := r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoBoardMatch)
}

func TestResolver_CatalogNames(t *testing.T) {
	r, _ := newTestResolver(t, "白酒", "银行", "券商")

	names, err := r.CatalogNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"白酒", "银行", "券商"}, names)
}

func TestCatalog_InProcessCacheAvoidsRefetch(t *testing.T) {
	r, market := newTestResolver(t, "白酒")

	_, err := r.Resolve(context.Background(), "白酒")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "白酒")
	require.NoError(t, err)

	assert.Equal(t, 1, market.calls)
}

func TestCatalog_EmptyCatalogIsAnError(t *testing.T) {
	market := &fakeMarket{}
	catalog := NewCatalog(market, disabledCache(t), time.Hour, logger.NewNop())

	_, err := catalog.Boards(context.Background())
	assert.Error(t, err)
}

func TestCatalog_ServesStaleCopyOnRefreshFailure(t *testing.T) {
	market := &fakeMarket{boards: []contracts.Board{{Name: "白酒", Code: "BK0001"}}}
	catalog := NewCatalog(market, disabledCache(t), 0, logger.NewNop())

	first, err := catalog.Boards(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// TTL of zero forces a refetch; the upstream now fails.
	market.err = errors.New("upstream down")
	market.boards = nil

	again, err := catalog.Boards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
