/*
Package events carries the phase transitions of a publish run from the
orchestrator to whatever presents them.

The orchestrator only publishes; it never prints, prompts or opens dialogs. A
presentation layer subscribes and renders: the CLI prints one line per phase
transition, and the history recorder keeps the last phase reached. Swapping the
CLI for another front end means writing another subscriber.

	b := events.NewBroker()
	b.Start()
	sub := b.Subscribe()

	go func() {
		for ev := range sub {
			fmt.Printf("[%s] %s\n", ev.Phase, ev.Message)
		}
	}()

	// ... run the orchestrator with b ...

	b.Stop() // delivers what was published, then closes sub

Subscribe is best effort: a subscriber whose buffer (50 events) is full misses
events rather than stalling the run. SubscribeBlocking delivers every event and
suits a printer that must show the final run.failed line; its reader has to
drain the channel until Stop closes it.
*/
package events
