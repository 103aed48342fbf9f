package canbus

import (
	"context"
	"fmt"
)

func ExampleLoopbackBus() {
	bus := NewLoopbackBus()
	a := bus.Open()
	b := bus.Open()
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	_ = a.Send(ctx, MustFrame(0x781, []byte{1, 2}))
	f, _ := b.Receive(ctx)
	fmt.Println(f)
	// Output: 781 [2] 01 02
}
