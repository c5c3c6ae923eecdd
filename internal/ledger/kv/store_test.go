package kv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "profilecheck/pkg/domain-errors"
)

// BackendSuite runs the same behavior checks against every backend.
type BackendSuite struct {
	suite.Suite
	newBackend func(t *testing.T) Backend
	store      *Store
}

func TestMemoryBackend(t *testing.T) {
	suite.Run(t, &BackendSuite{newBackend: func(*testing.T) Backend { return NewMemoryBackend() }})
}

func TestLevelDBBackend(t *testing.T) {
	suite.Run(t, &BackendSuite{newBackend: func(t *testing.T) Backend {
		b, err := OpenLevelDBMemory()
		require.NoError(t, err)
		return b
	}})
}

func (s *BackendSuite) SetupTest() {
	s.store = NewStore(s.newBackend(s.T()))
	s.T().Cleanup(func() { _ = s.store.Close() })
}

var (
	keyA = []byte{0x01, 'a'}
	keyB = []byte{0x01, 'b', 'b'}
)

func (s *BackendSuite) usage() uint64 {
	u, err := s.store.Usage(context.Background())
	s.Require().NoError(err)
	return u
}

func (s *BackendSuite) TestPutChargesFootprint() {
	ctx := context.Background()

	var before, after uint64
	err := s.store.RunInTx(ctx, "a", func(tx *Tx) error {
		before = tx.Usage()
		if err := tx.Put(keyA, []byte("12345678")); err != nil {
			return err
		}
		after = tx.Usage()
		return nil
	})
	s.Require().NoError(err)

	s.Equal(uint64(0), before)
	s.Equal(uint64(len(keyA)+8+RecordOverhead), after)
	s.Equal(after, s.usage())

	v, ok, err := s.store.Get(ctx, keyA)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal([]byte("12345678"), v)
}

func (s *BackendSuite) TestOverwriteChargesOnlyValueGrowth() {
	ctx := context.Background()
	s.Require().NoError(s.store.RunInTx(ctx, "a", func(tx *Tx) error {
		return tx.Put(keyA, []byte("1234"))
	}))
	first := s.usage()

	s.Require().NoError(s.store.RunInTx(ctx, "a", func(tx *Tx) error {
		return tx.Put(keyA, []byte("123456"))
	}))
	s.Equal(first+2, s.usage())

	s.Require().NoError(s.store.RunInTx(ctx, "a", func(tx *Tx) error {
		return tx.Put(keyA, []byte("abcdef"))
	}))
	s.Equal(first+2, s.usage(), "same-size overwrite leaves usage unchanged")
}

func (s *BackendSuite) TestDeleteFreesFootprint() {
	ctx := context.Background()
	s.Require().NoError(s.store.RunInTx(ctx, "a", func(tx *Tx) error {
		if err := tx.Put(keyA, []byte("x")); err != nil {
			return err
		}
		return tx.Put(keyB, []byte("yy"))
	}))

	var removed bool
	s.Require().NoError(s.store.RunInTx(ctx, "a", func(tx *Tx) error {
		var err error
		removed, err = tx.Delete(keyA)
		return err
	}))
	s.True(removed)
	s.Equal(uint64(len(keyB)+2+RecordOverhead), s.usage())

	_, ok, err := s.store.Get(ctx, keyA)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *BackendSuite) TestDeleteMissingIsNoop() {
	var removed bool
	s.Require().NoError(s.store.RunInTx(context.Background(), "a", func(tx *Tx) error {
		var err error
		removed, err = tx.Delete(keyA)
		return err
	}))
	s.False(removed)
	s.Equal(uint64(0), s.usage())
}

func (s *BackendSuite) TestErrorRollsBack() {
	boom := errors.New("boom")
	err := s.store.RunInTx(context.Background(), "a", func(tx *Tx) error {
		s.Require().NoError(tx.Put(keyA, []byte("x")))
		ok, err := tx.Has(keyA)
		s.Require().NoError(err)
		s.True(ok, "writes are visible inside the transaction")
		return boom
	})
	s.ErrorIs(err, boom)

	_, ok, err := s.store.Get(context.Background(), keyA)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(uint64(0), s.usage())
}

func (s *BackendSuite) TestPutThenDeleteInOneTx() {
	s.Require().NoError(s.store.RunInTx(context.Background(), "a", func(tx *Tx) error {
		if err := tx.Put(keyA, []byte("x")); err != nil {
			return err
		}
		removed, err := tx.Delete(keyA)
		s.True(removed)
		return err
	}))
	s.Equal(uint64(0), s.usage())
	_, ok, err := s.store.Get(context.Background(), keyA)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *BackendSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.store.RunInTx(ctx, "a", func(*Tx) error {
		called = true
		return nil
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.False(called)
}

func (s *BackendSuite) TestConcurrentWritersKeepUsageExact() {
	const writers = 32
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := []byte{0x01, byte(i)}
			err := s.store.RunInTx(context.Background(), string(key), func(tx *Tx) error {
				return tx.Put(key, []byte("v"))
			})
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Equal(uint64(writers*(2+1+RecordOverhead)), s.usage())
}

func TestStoreAppliesTimeout(t *testing.T) {
	store := NewStore(NewMemoryBackend(), WithTxTimeout(time.Millisecond))
	err := store.RunInTx(context.Background(), "a", func(tx *Tx) error {
		_, hasDeadline := tx.Context().Deadline()
		require.True(t, hasDeadline)
		return nil
	})
	require.NoError(t, err)
}

func TestFootprint(t *testing.T) {
	require.Equal(t, int64(3+8+RecordOverhead), Footprint([]byte("abc"), make([]byte, 8)))
}
