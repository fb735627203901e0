package event

import "messenger/domain"

// Delivery pairs an event with its audience. Exactly one of Users or Group is
// meaningful: Users targets every live connection of those users, Group targets
// the subscribers of the group who are still members when the push happens.
type Delivery struct {
	Event DomainEvent
	Users []domain.UserID
	Group *domain.GroupID
}

func ToUsers(evt DomainEvent, users ...domain.UserID) Delivery {
	return Delivery{Event: evt, Users: users}
}

func ToGroup(evt DomainEvent, groupID domain.GroupID) Delivery {
	return Delivery{Event: evt, Group: &groupID}
}
