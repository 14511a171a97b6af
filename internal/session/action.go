package session

// Action is a request from a Connection that only the server can carry out.
// The set is closed: RequestEnter, RequestBroadcast and Disconnect.
type Action interface {
	isAction()
}

// RequestEnter asks the server to grant Name if no other entered connection holds it.
type RequestEnter struct {
	Name string
}

// RequestBroadcast asks the server to relay Content to every other entered connection.
type RequestBroadcast struct {
	Content string
}

// Disconnect asks the server to close the connection. Reason is never nil.
type Disconnect struct {
	Reason error
}

func (RequestEnter) isAction()     {}
func (RequestBroadcast) isAction() {}
func (Disconnect) isAction()       {}
