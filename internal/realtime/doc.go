// Package realtime delivers chat and match events over WebSocket
// connections.
//
// Each connection walks Connecting → Open → Closed. On open it is
// subscribed to every conversation its user participates in; each
// conversation id is a topic. Inbound frames of the shape
// {conversationId, content} are persisted through the Store and then
// published as NEW_MESSAGE to the other subscribers of that topic.
//
// Delivery is at-most-once. A connection whose send queue is full drops
// the frame; clients reconcile by re-reading conversation history.
//
// The topic registry is process-local. Match events reach users connected
// to other processes through the notify package's Redis relay, chat
// fan-out does not.
package realtime
