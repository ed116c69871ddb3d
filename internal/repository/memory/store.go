// Package memory is a process-local implementation of the repository
// contracts, used by tests and local development. It mirrors the postgres
// semantics that matter to the engine: version-checked saves, a unique
// idempotency index, and all-or-nothing WithTx visibility. It is not a
// substitute for a shared store across processes.
package memory

import (
	"context"
	"sync"

	"github.com/acmebank/mts-backend/internal/models"
	"github.com/acmebank/mts-backend/internal/repository"
)

type state struct {
	accounts    map[int64]*models.Account
	nextAccount int64

	logs    map[int64]*models.TransactionLog
	nextLog int64

	bankDetails map[int64]*models.BankDetails
	nextBank    int64

	users map[string]models.User
}

func newState() *state {
	return &state{
		accounts:    map[int64]*models.Account{},
		nextAccount: 1,
		logs:        map[int64]*models.TransactionLog{},
		nextLog:     1,
		bankDetails: map[int64]*models.BankDetails{},
		nextBank:    1,
		users:       map[string]models.User{},
	}
}

func (st *state) clone() *state {
	c := newState()
	c.nextAccount, c.nextLog, c.nextBank = st.nextAccount, st.nextLog, st.nextBank
	for id, a := range st.accounts {
		cp := *a
		c.accounts[id] = &cp
	}
	for id, l := range st.logs {
		cp := *l
		c.logs[id] = &cp
	}
	for id, d := range st.bankDetails {
		cp := *d
		c.bankDetails[id] = &cp
	}
	for id, u := range st.users {
		c.users[id] = u
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store { return &Store{st: newState()} }

func (s *Store) Repos() repository.Repositories {
	return reposOver(&liveView{s: s})
}

// WithTx applies fn to a deep copy of the state and swaps it in only when fn
// succeeds, so a failing transfer leaves no partial writes behind.
func (s *Store) WithTx(_ context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(reposOver(&txView{st: work})); err != nil {
		return err
	}
	s.st = work
	return nil
}

// view serializes access to a state snapshot. liveView locks the store per
// call; txView runs under the lock WithTx already holds.
type view interface {
	do(fn func(st *state) error) error
}

type liveView struct{ s *Store }

func (v *liveView) do(fn func(st *state) error) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

type txView struct{ st *state }

func (v *txView) do(fn func(st *state) error) error { return fn(v.st) }

func reposOver(v view) repository.Repositories {
	return repository.Repositories{
		Accounts:        &accountsRepo{v},
		TransactionLogs: &transactionLogsRepo{v},
		BankDetails:     &bankDetailsRepo{v},
		Users:           &usersRepo{v},
	}
}
