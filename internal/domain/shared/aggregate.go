package shared

// AggregateRoot buffers the events raised by its commands until the
// application layer drains them after a successful save. Concurrency tokens
// are owned by repositories, not by aggregates.
type AggregateRoot interface {
	DomainEvents() []DomainEvent
	PullDomainEvents() []DomainEvent
}

// BaseAggregateRoot provides identity and the pending event buffer
type BaseAggregateRoot struct {
	BaseEntity
	domainEvents []DomainEvent
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot(base BaseEntity) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   base,
		domainEvents: make([]DomainEvent, 0),
	}
}

// AddDomainEvent buffers a domain event for later publication
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// DomainEvents returns a copy of the pending events without draining them
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	out := make([]DomainEvent, len(a.domainEvents))
	copy(out, a.domainEvents)
	return out
}

// PullDomainEvents returns the pending events in emission order and clears
// the buffer. The result is never nil.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	out := a.domainEvents
	if out == nil {
		out = make([]DomainEvent, 0)
	}
	a.domainEvents = make([]DomainEvent, 0)
	return out
}
