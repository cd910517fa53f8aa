package tickquery_test

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/tickquery/pkg/tickquery"
)

// printHandler prints every decoded reply.
type printHandler struct {
	tickquery.BaseEventHandler
}

func (printHandler) OnReply(e tickquery.ReplyEvent) {
	fmt.Printf("tick %d: %s\n", e.Seq, e.Message.Body)
}

func ExampleNew() {
	cfg := tickquery.DefaultConfig()
	cfg.Interval = time.Millisecond
	cfg.Count = 2

	client, err := tickquery.New(cfg, tickquery.WithEventHandler(printHandler{}))
	if err != nil {
		fmt.Printf("failed to create client: %v\n", err)
		return
	}

	if err := client.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	<-client.Done()

	// Output:
	// tick 1: ack
	// tick 2: ack
}
