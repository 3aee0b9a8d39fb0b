package imap

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
)

const (
	// idleTimeout is the maximum time a connection can be idle before being closed.
	idleTimeout = 10 * time.Minute
	// healthCheckThreshold is the idle time after which we perform a health check before reuse.
	healthCheckThreshold = 1 * time.Minute
)

// connectFunc dials and authenticates a fresh IMAP client. The pool stays
// credential-agnostic; the service supplies the right mechanism per user.
type connectFunc func() (*client.Client, error)

// Pool caches one authenticated IMAP connection per user.
//
// Thread safety: each connection is wrapped with a mutex. Multiple goroutines
// can use different users' connections concurrently, but access to the same
// connection is serialized.
type Pool struct {
	clients       map[string]*threadSafeClient
	mu            sync.Mutex
	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
}

// NewPool creates a new IMAP connection pool and starts its idle cleanup.
func NewPool() *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		clients:       make(map[string]*threadSafeClient),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
	go p.startCleanupGoroutine()
	return p
}

// Get returns the user's connection, dialing a new one via connect when none
// is cached or the cached one fails its health check. The returned release
// function must be called when the caller is done with the client.
func (p *Pool) Get(userID string, connect connectFunc) (*client.Client, func(), error) {
	p.mu.Lock()
	tsClient, exists := p.clients[userID]
	if !exists {
		tsClient = &threadSafeClient{}
		p.clients[userID] = tsClient
	}
	p.mu.Unlock()

	tsClient.Lock()

	if tsClient.GetClient() != nil && time.Since(tsClient.GetLastUsed()) > healthCheckThreshold {
		if err := tsClient.GetClient().Noop(); err != nil {
			log.Printf("IMAP: Health check failed for user %s, reconnecting: %v", userID, err)
			_ = tsClient.GetClient().Logout()
			tsClient.client = nil
		}
	}

	if tsClient.GetClient() == nil {
		c, err := connect()
		if err != nil {
			tsClient.Unlock()
			return nil, nil, err
		}
		tsClient.client = c
	}

	release := func() {
		tsClient.UpdateLastUsed()
		tsClient.Unlock()
	}
	return tsClient.GetClient(), release, nil
}

// Remove drops the user's connection from the pool, logging out if possible.
func (p *Pool) Remove(userID string) {
	p.mu.Lock()
	tsClient, exists := p.clients[userID]
	if exists {
		delete(p.clients, userID)
	}
	p.mu.Unlock()

	if !exists {
		return
	}

	tsClient.Lock()
	if tsClient.GetClient() != nil {
		_ = tsClient.GetClient().Logout()
	}
	tsClient.Unlock()
}

// Close closes all connections in the pool and stops the cleanup goroutine.
func (p *Pool) Close() {
	p.cleanupCancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	for userID, tsClient := range p.clients {
		// Try to lock - if we can't, the connection is in use. Close it
		// anyway during shutdown.
		if tsClient.TryLock() {
			if tsClient.GetClient() != nil {
				if err := tsClient.GetClient().Logout(); err != nil {
					log.Printf("IMAP: Failed to logout connection for user %s: %v", userID, err)
				}
			}
			tsClient.Unlock()
		} else if tsClient.GetClient() != nil {
			_ = tsClient.GetClient().Logout()
		}
		delete(p.clients, userID)
	}
}

// startCleanupGoroutine periodically closes connections that have been idle
// too long. It stops when cleanupCtx is canceled (via Pool.Close()).
func (p *Pool) startCleanupGoroutine() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-p.cleanupCtx.Done():
			return
		case <-ticker.C:
			p.cleanupIdleConnections()
		}
	}
}

// cleanupIdleConnections removes connections that have been idle too long.
func (p *Pool) cleanupIdleConnections() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for userID, tsClient := range p.clients {
		// Skip connections that are in use.
		if !tsClient.TryLock() {
			continue
		}
		if tsClient.GetClient() != nil && now.Sub(tsClient.GetLastUsed()) > idleTimeout {
			_ = tsClient.GetClient().Logout()
			delete(p.clients, userID)
		}
		tsClient.Unlock()
	}
}
