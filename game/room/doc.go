// Package room runs live Bingo Duel games.
//
// Every room code has one Coordinator: a goroutine draining a mailbox of
// actions for that room. Connect, Disconnect, Receive and Update all go
// through the mailbox, so a load, mutation, save and broadcast for one
// action finishes before the next action for the same room starts. Rooms
// are independent of each other.
//
// The Registry records which connections are in which room and, optionally,
// which seat a connection is bound to. Delivery is best effort; a failed
// send is logged and the remaining connections still get the event.
//
// The Hub starts coordinators on demand, routes work to them by code and
// stops the ones that have gone idle.
//
// Wire protocol:
//
//	-> {"action":"mark_number","player":"player1","number":7}
//	<- {"action":"mark_number","number":7,"player":"player1"}
//	<- {"action":"turn_change","current_turn":"player2"}
package room
