package tournamentlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New()
	s.ctx = context.Background()
}

func (s *RegistrySuite) TestSerializesSameTournament() {
	const workers = 20
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := s.registry.Lock(s.ctx, "t1")
			if !s.NoError(err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Equal(1, maxSeen)
	s.Equal(0, s.registry.Len())
}

func (s *RegistrySuite) TestDifferentTournamentsDoNotBlock() {
	unlock1, err := s.registry.Lock(s.ctx, "t1")
	s.Require().NoError(err)
	defer unlock1()

	ctx, cancel := context.WithTimeout(s.ctx, time.Second)
	defer cancel()
	unlock2, err := s.registry.Lock(ctx, "t2")
	s.Require().NoError(err)
	unlock2()
}

func (s *RegistrySuite) TestContextCancelWhileWaiting() {
	unlock, err := s.registry.Lock(s.ctx, "t1")
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()
	_, err = s.registry.Lock(ctx, "t1")
	s.ErrorIs(err, context.DeadlineExceeded)

	unlock()
	s.Equal(0, s.registry.Len())
}

func (s *RegistrySuite) TestUnlockIsIdempotent() {
	unlock, err := s.registry.Lock(s.ctx, "t1")
	s.Require().NoError(err)
	unlock()
	unlock()

	again, err := s.registry.Lock(s.ctx, "t1")
	s.Require().NoError(err)
	again()
}
