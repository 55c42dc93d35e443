package middleware

type ctxKey string

const ctxKeyUser ctxKey = "auth_user"
