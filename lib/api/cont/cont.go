package cont

import (
	"context"
)

type ctxKey string

const AdminKey ctxKey = "admin"

// PutAdmin marks the request as authenticated by the admin token.
func PutAdmin(c context.Context, name string) context.Context {
	return context.WithValue(c, AdminKey, name)
}

func GetAdmin(c context.Context) string {
	name, ok := c.Value(AdminKey).(string)
	if !ok {
		return ""
	}
	return name
}
