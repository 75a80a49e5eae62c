// Package loginsight provides an embeddable forwarder that delivers
// structured log events to the VMware Log Insight ingestion API.
//
// Events are encoded as they are received and buffered. A batch is
// delivered when MaxItems events are pending, when MaxInterval has passed
// since the last flush, on Flush, and on Stop.
//
// # Basic Usage
//
//	fwd, err := loginsight.New(loginsight.Config{
//	    Host: "loginsight.example.com",
//	    UUID: "6f1c2a4e-0000-4000-8000-000000000001",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := fwd.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	ev, _ := event.Parse([]byte(`{"@timestamp":"2024-01-01T00:00:00Z","message":"hello"}`))
//	_ = fwd.Receive(ctx, ev)
//
//	if err := fwd.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Delivery
//
// Batches are posted as {"events":[...]} to
// {proto}://{host}:{port}/api/v1/events/ingest/{agent id}, or to Config.URL
// when set. A batch the server rejects is logged and dropped; there is no
// retry.
//
// # Event Handling
//
// Implement [EventHandler] (or embed [BaseEventHandler]) and pass it via
// [WithEventHandler] to observe state changes and deliveries.
//
// # Lifecycle States
//
// A Forwarder is in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Forwarder.Status]
// to query the current state.
//
// A Stop that exceeds Config.ShutdownTimeout leaves the forwarder in
// StateCrashed while the last batch finishes in the background. Start returns
// [ErrDraining] until it has.
package loginsight
