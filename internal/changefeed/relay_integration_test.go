//go:build integration

package changefeed_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"prospector/internal/changefeed"
	"prospector/internal/docstore"
	"prospector/pkg/testutil/containers"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

type RelaySuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	pool  *pgxpool.Pool
	store *docstore.PostgresStore
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	pool, err := pgxpool.New(context.Background(), s.pg.URL)
	s.Require().NoError(err)
	s.pool = pool
	s.store = docstore.NewPostgresStore(s.pg.DB)
}

func (s *RelaySuite) TearDownSuite() {
	s.pool.Close()
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "documents", "document_changes"))
}

func (s *RelaySuite) unpublished() int {
	var n int
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT count(*) FROM document_changes WHERE published_at IS NULL`).Scan(&n))
	return n
}

func (s *RelaySuite) TestPublishesInSequenceOrder() {
	ctx := context.Background()
	ref := docstore.Ref{Collection: "schools", Key: "s1"}
	s.Require().NoError(s.store.Merge(ctx, ref, docstore.Document{"address": "Rua A", "city": "Campinas"}))
	s.Require().NoError(s.store.Merge(ctx, ref, docstore.Document{"address": "Rua B"}))

	producer := &fakeProducer{}
	relay, err := changefeed.NewRelay(s.pool, producer, changefeed.RelayOptions{BatchSize: 10})
	s.Require().NoError(err)

	n, err := relay.ProcessOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Zero(s.unpublished())

	s.Require().Len(producer.records, 2)
	s.Equal("schools/s1", string(producer.records[0].Key))

	var second docstore.Change
	s.Require().NoError(json.Unmarshal(producer.records[1].Value, &second))
	s.Equal("Rua A", second.Before["address"])
	s.Equal("Rua B", second.After["address"])
	s.Equal("Campinas", second.After["city"])

	n, err = relay.ProcessOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RelaySuite) TestProduceFailureLeavesRowsPending() {
	ctx := context.Background()
	s.Require().NoError(s.store.Merge(ctx, docstore.Ref{Collection: "companies", Key: "c1"}, docstore.Document{"address": "Av. Brasil"}))

	relay, err := changefeed.NewRelay(s.pool, &fakeProducer{err: errors.New("broker down")}, changefeed.RelayOptions{})
	s.Require().NoError(err)

	_, err = relay.ProcessOnce(ctx)
	s.Error(err)
	s.Equal(1, s.unpublished())
}
