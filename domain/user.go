// Package domain contains core concepts of the messenger.
// No runtime, network, or storage logic should be added here.
package domain

type UserID int64

type User struct {
	ID           UserID
	DisplayName  string
	AvatarHandle *string
}
