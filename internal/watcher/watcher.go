// Package watcher implements the event-watching pipeline: per-subscription
// block polling, event extraction from transaction logs, and the
// request/sample/respond processing loop.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/config"
	"github.com/IQAIcom/mcp-near-agent/internal/metrics"
	"github.com/IQAIcom/mcp-near-agent/internal/models"
	"github.com/IQAIcom/mcp-near-agent/internal/near"
	"github.com/IQAIcom/mcp-near-agent/internal/scheduler"
)

// AccountProvider supplies the shared chain account. Initialization is lazy
// and idempotent; the watcher triggers it on first use.
type AccountProvider interface {
	Initialize(ctx context.Context) (near.Account, error)
	GetAccount() near.Account
	IsReady() bool
	ValidateConnection(ctx context.Context) bool
}

// JobScheduler runs recurring callbacks. The watcher's skip-if-busy and
// error-isolation logic is independent of the concrete timer implementation.
type JobScheduler interface {
	Start(spec string, fn func()) (*scheduler.Job, error)
	Pause(job *scheduler.Job)
	Resume(job *scheduler.Job)
	Stop(job *scheduler.Job)
	StopAll()
}

// WatcherCallbacks receive watcher-level notifications. All fields optional.
type WatcherCallbacks struct {
	OnEvent   func(sub *models.Subscription, event models.AgentEvent)
	OnResult  func(result models.ProcessingResult)
	OnStopped func(subscriptionID string)
	OnError   func(subscriptionID string, err error)
}

// EventWatcher owns the subscription registry and wires poller output into
// the processor. It is the single source of truth for what is being watched.
type EventWatcher struct {
	provider  AccountProvider
	scheduler JobScheduler
	poller    *BlockPoller
	processor *EventProcessor
	cfg       *config.Config

	mu             sync.Mutex
	subscriptions  map[string]*models.Subscription
	callbacks      WatcherCallbacks
	eventsDetected int
	startTime      time.Time
	accountReady   bool
}

// New creates an EventWatcher from its injected collaborators and wires the
// poller's event output into event handling.
func New(provider AccountProvider, jobScheduler JobScheduler, poller *BlockPoller, processor *EventProcessor, cfg *config.Config) *EventWatcher {
	w := &EventWatcher{
		provider:      provider,
		scheduler:     jobScheduler,
		poller:        poller,
		processor:     processor,
		cfg:           cfg,
		subscriptions: make(map[string]*models.Subscription),
		startTime:     time.Now(),
	}
	poller.SetCallbacks(w.handleEvent, w.handleBlockError)
	return w
}

// SetCallbacks registers external notification sinks.
func (w *EventWatcher) SetCallbacks(callbacks WatcherCallbacks) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = callbacks
}

// ensureAccount lazily initializes the shared account and validates the RPC
// connection, then wires the account into the poller and processor. Fatal on
// validation failure.
func (w *EventWatcher) ensureAccount(ctx context.Context) error {
	w.mu.Lock()
	ready := w.accountReady
	w.mu.Unlock()
	if ready {
		return nil
	}

	account, err := w.provider.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize account: %w", err)
	}
	if !w.provider.ValidateConnection(ctx) {
		return fmt.Errorf("connection validation failed for %s", account.AccountID())
	}

	w.poller.SetAccount(account)
	w.processor.SetAccount(account)

	w.mu.Lock()
	w.accountReady = true
	w.mu.Unlock()
	return nil
}

// WatchEvent registers a new subscription and starts its polling schedule.
// Re-watching an already-registered (contract, event) pair is an error. Any
// failure during setup tears down the partially created subscription.
func (w *EventWatcher) WatchEvent(ctx context.Context, req models.WatchRequest) (string, error) {
	if req.ContractID == "" || req.EventName == "" {
		return "", fmt.Errorf("contract id and event name are required")
	}
	if req.Sampler == nil {
		return "", fmt.Errorf("sampling channel is required")
	}

	if err := w.ensureAccount(ctx); err != nil {
		return "", err
	}

	key := models.SubscriptionKey(req.ContractID, req.EventName)

	responseMethod := req.ResponseMethodName
	if responseMethod == "" {
		responseMethod = w.cfg.DefaultResponseMethod
	}
	cronExpr := req.CronExpression
	if cronExpr == "" {
		cronExpr = w.cfg.DefaultCronExpression
	}

	sub := &models.Subscription{
		ID:                 key,
		ContractID:         req.ContractID,
		EventName:          req.EventName,
		ResponseMethodName: responseMethod,
		CronExpression:     cronExpr,
		Sampler:            req.Sampler,
		IsActive:           true,
		CreatedAt:          time.Now().UTC(),
	}

	w.mu.Lock()
	if _, exists := w.subscriptions[key]; exists {
		w.mu.Unlock()
		return "", fmt.Errorf("already watching %s", key)
	}
	w.subscriptions[key] = sub
	w.mu.Unlock()

	w.poller.InitializeSubscription(key)

	job, err := w.scheduler.Start(cronExpr, func() { w.tick(key) })
	if err != nil {
		// Roll back the partially created subscription
		w.poller.RemoveSubscription(key)
		w.mu.Lock()
		delete(w.subscriptions, key)
		w.mu.Unlock()
		return "", fmt.Errorf("failed to start schedule %q: %w", cronExpr, err)
	}

	w.mu.Lock()
	sub.Job = job
	w.mu.Unlock()
	metrics.ActiveSubscriptions.Inc()

	slog.Info("Watching event",
		"subscription", key,
		"response_method", responseMethod,
		"schedule", cronExpr,
	)
	return key, nil
}

// tick runs one scheduled poll for the subscription. A tick that lands while
// a poll is still in flight is dropped, not queued; errors are surfaced
// through the error callback and never reach the scheduler.
func (w *EventWatcher) tick(key string) {
	w.mu.Lock()
	sub, exists := w.subscriptions[key]
	active := exists && sub.IsActive
	w.mu.Unlock()
	if !active {
		return
	}

	if w.poller.IsProcessing(key) {
		metrics.PollsSkipped.Inc()
		slog.Debug("Skipping tick, poll in flight", "subscription", key)
		return
	}

	if _, err := w.poller.PollForEvents(context.Background(), sub); err != nil {
		metrics.ErrorsTotal.WithLabelValues("watcher").Inc()
		slog.Error("Poll failed", "subscription", key, "error", err)
		w.emitError(key, err)
	}
}

// handleEvent is the poller's event sink: update detection stats, notify
// listeners, then process synchronously.
func (w *EventWatcher) handleEvent(sub *models.Subscription, event models.AgentEvent) {
	now := time.Now().UTC()
	w.mu.Lock()
	w.eventsDetected++
	sub.LastEventAt = &now
	callbacks := w.callbacks
	w.mu.Unlock()

	if callbacks.OnEvent != nil {
		callbacks.OnEvent(sub, event)
	}

	result := w.processor.ProcessEvent(context.Background(), event, sub)
	if callbacks.OnResult != nil {
		callbacks.OnResult(result)
	}
}

func (w *EventWatcher) handleBlockError(sub *models.Subscription, height uint64, err error) {
	w.emitError(sub.ID, fmt.Errorf("block %d: %w", height, err))
}

func (w *EventWatcher) emitError(subscriptionID string, err error) {
	w.mu.Lock()
	onError := w.callbacks.OnError
	w.mu.Unlock()
	if onError != nil {
		onError(subscriptionID, err)
	}
}

// StopWatching removes one subscription. Returns false when the pair is not
// being watched; that is not an error.
func (w *EventWatcher) StopWatching(contractID, eventName string) bool {
	key := models.SubscriptionKey(contractID, eventName)

	w.mu.Lock()
	sub, exists := w.subscriptions[key]
	if !exists {
		w.mu.Unlock()
		return false
	}
	delete(w.subscriptions, key)
	job := sub.Job
	onStopped := w.callbacks.OnStopped
	w.mu.Unlock()

	if job != nil {
		w.scheduler.Stop(job)
	}
	w.poller.RemoveSubscription(key)
	metrics.ActiveSubscriptions.Dec()

	slog.Info("Stopped watching", "subscription", key)
	if onStopped != nil {
		onStopped(key)
	}
	return true
}

// StopAllWatching stops every subscription. A failure stopping one does not
// prevent attempting the rest.
func (w *EventWatcher) StopAllWatching() {
	w.mu.Lock()
	keys := make([]string, 0, len(w.subscriptions))
	for key := range w.subscriptions {
		keys = append(keys, key)
	}
	w.mu.Unlock()

	for _, key := range keys {
		w.mu.Lock()
		sub, exists := w.subscriptions[key]
		w.mu.Unlock()
		if !exists {
			continue
		}
		if ok := w.StopWatching(sub.ContractID, sub.EventName); !ok {
			slog.Warn("Failed to stop subscription", "subscription", key)
		}
	}
}

// PauseWatching suspends the polling schedule without discarding registry or
// cursor state.
func (w *EventWatcher) PauseWatching(contractID, eventName string) bool {
	key := models.SubscriptionKey(contractID, eventName)
	w.mu.Lock()
	sub, exists := w.subscriptions[key]
	var job *scheduler.Job
	if exists {
		sub.IsActive = false
		job = sub.Job
	}
	w.mu.Unlock()
	if !exists {
		return false
	}
	if job != nil {
		w.scheduler.Pause(job)
	}
	slog.Info("Paused watching", "subscription", key)
	return true
}

// ResumeWatching re-enables a paused subscription's schedule.
func (w *EventWatcher) ResumeWatching(contractID, eventName string) bool {
	key := models.SubscriptionKey(contractID, eventName)
	w.mu.Lock()
	sub, exists := w.subscriptions[key]
	var job *scheduler.Job
	if exists {
		sub.IsActive = true
		job = sub.Job
	}
	w.mu.Unlock()
	if !exists {
		return false
	}
	if job != nil {
		w.scheduler.Resume(job)
	}
	slog.Info("Resumed watching", "subscription", key)
	return true
}

// IsWatching reports whether the (contract, event) pair is registered.
func (w *EventWatcher) IsWatching(contractID, eventName string) bool {
	key := models.SubscriptionKey(contractID, eventName)
	w.mu.Lock()
	defer w.mu.Unlock()
	_, exists := w.subscriptions[key]
	return exists
}

// GetWatchedEvents returns the registered subscription ids.
func (w *EventWatcher) GetWatchedEvents() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]string, 0, len(w.subscriptions))
	for key := range w.subscriptions {
		keys = append(keys, key)
	}
	return keys
}

// GetWatchingStatus returns the read-only view of every subscription.
func (w *EventWatcher) GetWatchingStatus() []models.SubscriptionStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	statuses := make([]models.SubscriptionStatus, 0, len(w.subscriptions))
	for _, sub := range w.subscriptions {
		statuses = append(statuses, models.SubscriptionStatus{
			ID:          sub.ID,
			ContractID:  sub.ContractID,
			EventName:   sub.EventName,
			IsActive:    sub.IsActive,
			CreatedAt:   sub.CreatedAt,
			LastEventAt: sub.LastEventAt,
		})
	}
	return statuses
}

// GetStats recomputes the aggregate statistics from the registry and the
// processor's running counters.
func (w *EventWatcher) GetStats() models.WatcherStats {
	processorStats := w.processor.GetStats()

	w.mu.Lock()
	defer w.mu.Unlock()

	active := 0
	for _, sub := range w.subscriptions {
		if sub.IsActive {
			active++
		}
	}

	return models.WatcherStats{
		TotalSubscriptions:   len(w.subscriptions),
		ActiveSubscriptions:  active,
		EventsDetected:       w.eventsDetected,
		TotalEventsProcessed: processorStats.TotalEventsProcessed,
		SuccessfulEvents:     processorStats.SuccessfulEvents,
		FailedEvents:         processorStats.FailedEvents,
		SuccessRate:          processorStats.SuccessRate(),
		AverageProcessing:    processorStats.AverageProcessingTime(),
		StartTime:            w.startTime,
	}
}

// Cleanup stops everything and detaches listeners. Safe to call repeatedly.
func (w *EventWatcher) Cleanup() {
	w.StopAllWatching()

	w.mu.Lock()
	w.subscriptions = make(map[string]*models.Subscription)
	w.callbacks = WatcherCallbacks{}
	w.accountReady = false
	w.mu.Unlock()

	slog.Info("Watcher cleaned up")
}
