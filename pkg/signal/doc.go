// Package signal implements an in-process signal/slot registry.
//
// A signal is declared once with a Contract: a unique name, ordered parameter
// types and a result type (Void for none). Slots register against the signal
// name with a matching shape and are invoked every time the signal fires.
// Producers and consumers never reference each other.
//
//	reg, err := signal.NewRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Shutdown(context.Background())
//
//	_, _ = reg.RegisterSignal("order.created", signal.Params(signal.TypeOf[string]()), signal.Void)
//	_, _ = reg.RegisterSlot(signal.Func(func(ctx context.Context, args []any) (any, error) {
//	    fmt.Println("order", args[0])
//	    return nil, nil
//	}), "order.created", signal.Params(signal.TypeOf[string]()), signal.Void)
//
//	_, err = reg.Invoke(ctx, "order.created", "A-1001")
//
// Invocations of a void signal with more than one slot are dispatched to a
// bounded worker pool in slot priority order when async dispatch is enabled.
// Everything else runs synchronously on the caller's goroutine and returns
// one Result per slot.
package signal
