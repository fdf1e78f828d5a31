package storage

// Keys - naming scheme shared by the store and the notification channel.
type Keys struct {
	Prefix string
}

func NewKeys(prefix string) Keys {
	return Keys{Prefix: prefix}
}

func (that Keys) Room(code string) string {
	return that.Prefix + "room:" + code
}

func (that Keys) Session(id string) string {
	return that.Prefix + "session:" + id
}

// Topic - every change to a room or its session is published here.
func (that Keys) Topic(code string) string {
	return that.Prefix + "room:" + code + ":events"
}
