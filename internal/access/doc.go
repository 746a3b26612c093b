// Package access is the door's access-control state machine.
//
// A Machine owns the single AccessState value and is driven by three kinds of
// input: classified camera frames, operator triggers (confirm, deny, begin
// lock) and timer fires. A Controller serializes all of them onto one FIFO
// queue consumed by a single goroutine, so the state is never mutated
// concurrently and frame processing never waits for a human.
//
// Transitions (initial state Locked):
//
//	Locked/ScanningUnlock  stable known X     -> AwaitingUnlockConfirm(X)
//	Locked/ScanningUnlock  stable Unknown     -> Locked (recognition failed)
//	AwaitingUnlockConfirm  confirm            -> Unlocked            [Unlock]
//	AwaitingUnlockConfirm  deny/timeout       -> Locked
//	Unlocked               begin lock         -> ScanningLock
//	ScanningLock           stable known Y     -> AwaitingLockConfirm(Y)
//	ScanningLock           stable Unknown     -> Unlocked (recognition failed)
//	AwaitingLockConfirm    confirm            -> Cooldown(now+T)     [Lock]
//	AwaitingLockConfirm    deny/timeout       -> Unlocked
//	Cooldown(until)        now >= until       -> Locked
//
// Every timer fire carries the token of the scope that started it; a fire
// whose token is no longer current is dropped without effect.
package access
