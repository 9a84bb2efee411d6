package identity

const (
	recordKeyPrefix = "user:"
	indexKeyPrefix  = "user:index:"
	allUsersKey     = "users:all"
)

func recordKey(id string) string {
	return recordKeyPrefix + id
}

func indexKey(loginKey string) string {
	return indexKeyPrefix + loginKey
}
