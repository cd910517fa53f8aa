// Package tickquery provides an embeddable periodic query client.
//
// On every tick the client builds a small message (timestamp, reference id,
// entity path, body), encodes it with protobuf, issues one query to a named
// endpoint and drains the replies the endpoint streams back. Every reply is
// either decoded and reported or reported as an application error. Failures
// never stop the loop; the next tick simply tries again.
//
// # Basic Usage
//
//	cfg := tickquery.DefaultConfig()
//	cfg.Transport = tickquery.TransportHTTP
//	cfg.ServiceURL = "http://localhost:7447"
//
//	client, err := tickquery.New(cfg, tickquery.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop()
//
// # Transports
//
// [TransportMemory] answers every query in-process with an "ack" reply and
// needs no infrastructure. [TransportHTTP] posts queries over HTTP/2 and
// reads replies from the streamed response body. [TransportKafka] writes
// queries to a topic named after the endpoint and reads replies from a
// reply topic. Any [Session] can be injected with [WithSession].
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler] for defaults) and
// pass it via [WithEventHandler]. Events are called synchronously from the
// query goroutine.
//
// # Metrics
//
// The client records OpenTelemetry metrics on the global meter provider, or
// on the one passed with [WithMeterProvider].
//
// # Lifecycle States
//
// A client is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. Setup failures during [Client.Start]
// leave it in StateCrashed and are returned as *[SetupError].
package tickquery
