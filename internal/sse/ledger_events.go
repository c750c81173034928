package sse

import (
	"context"
	"sync"

	"ms-ordering/internal/models"
)

// LedgerEventEmitter fans ledger events out to connected SSE clients:
// the staff dashboard subscribes to everything, a diner page to one
// table.
type LedgerEventEmitter struct {
	allClients     []chan models.LedgerEvent
	allClientMutex sync.RWMutex

	tableClients     map[string][]chan models.LedgerEvent
	tableClientMutex sync.RWMutex
}

func NewLedgerEventEmitter() *LedgerEventEmitter {
	return &LedgerEventEmitter{
		tableClients: make(map[string][]chan models.LedgerEvent),
	}
}

// Subscribe adds a client that receives every ledger event.
func (e *LedgerEventEmitter) Subscribe(ctx context.Context) chan models.LedgerEvent {
	clientChan := make(chan models.LedgerEvent, 10)

	e.allClientMutex.Lock()
	e.allClients = append(e.allClients, clientChan)
	e.allClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeAllClient(clientChan)
	}()

	return clientChan
}

// SubscribeToTable adds a client that receives only one table's events.
func (e *LedgerEventEmitter) SubscribeToTable(ctx context.Context, tableID string) chan models.LedgerEvent {
	clientChan := make(chan models.LedgerEvent, 10)

	e.tableClientMutex.Lock()
	e.tableClients[tableID] = append(e.tableClients[tableID], clientChan)
	e.tableClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeTableClient(tableID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts an event. Slow clients are skipped rather than
// blocking the ledger's write path.
func (e *LedgerEventEmitter) Emit(event models.LedgerEvent) {
	e.allClientMutex.RLock()
	for _, clientChan := range e.allClients {
		select {
		case clientChan <- event:
		default:
		}
	}
	e.allClientMutex.RUnlock()

	e.tableClientMutex.RLock()
	for _, clientChan := range e.tableClients[event.TableID] {
		select {
		case clientChan <- event:
		default:
		}
	}
	e.tableClientMutex.RUnlock()
}

func (e *LedgerEventEmitter) removeAllClient(clientChan chan models.LedgerEvent) {
	e.allClientMutex.Lock()
	defer e.allClientMutex.Unlock()

	for i, ch := range e.allClients {
		if ch == clientChan {
			e.allClients = append(e.allClients[:i], e.allClients[i+1:]...)
			close(ch)
			break
		}
	}
}

func (e *LedgerEventEmitter) removeTableClient(tableID string, clientChan chan models.LedgerEvent) {
	e.tableClientMutex.Lock()
	defer e.tableClientMutex.Unlock()

	clients := e.tableClients[tableID]
	for i, ch := range clients {
		if ch == clientChan {
			e.tableClients[tableID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.tableClients[tableID]) == 0 {
		delete(e.tableClients, tableID)
	}
}
