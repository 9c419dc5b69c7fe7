// Package reactive provides Value, a mutable holder with change notification.
//
// # Modes
//
// An Auto value notifies listeners whenever Set, Update, UpdateAsync or a
// committed Batch actually changes its content. A Manual value only changes
// through SetSilently/UpdateSilently and a listener hears about it when the
// owner calls ForceNotify.
//
//	name := reactive.New("guest")
//	id, _ := name.AddListener(func(s string) { fmt.Println("hello", s) })
//	_ = name.Set("ada")      // prints "hello ada"
//	_ = name.Set("ada")      // equal, nothing happens
//	name.RemoveListener(id)
//
//	form := reactive.New(Form{}, reactive.Manual())
//	_ = form.UpdateSilently(func(f Form) Form { f.Email = "a@b.c"; return f })
//	form.ForceNotify()
//
// # Batches
//
// A batch applies several transforms and notifies at most once:
//
//	_ = cart.Batch().Apply(addItem).Apply(applyDiscount).Commit()
//
// # Disposal
//
// Dispose drops listeners. Mutations then fail with ErrDisposed while reads,
// ForceNotify and RemoveListener keep working as no-ops so teardown code does
// not have to care about ordering. Value implements the registry's Disposer
// capability, so removing it from a container disposes it.
package reactive
