package token

import (
	"net/http"
	"net/url"
)

// CookieSource is the script-visible view of the session cookies.
type CookieSource interface {
	Cookie(name string) (string, bool)
	Expire(name string)
}

// JarCookies exposes the cookies an http.CookieJar holds for one origin.
type JarCookies struct {
	Jar http.CookieJar
	URL *url.URL
}

func (j JarCookies) Cookie(name string) (string, bool) {
	if j.Jar == nil || j.URL == nil {
		return "", false
	}
	for _, c := range j.Jar.Cookies(j.URL) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Expire overwrites name with an already-expired cookie at path "/". Cookies
// the server scoped to another path or domain survive.
func (j JarCookies) Expire(name string) {
	if j.Jar == nil || j.URL == nil {
		return
	}
	j.Jar.SetCookies(j.URL, []*http.Cookie{{Name: name, Value: "", Path: "/", MaxAge: -1}})
}

type noCookies struct{}

func (noCookies) Cookie(string) (string, bool) { return "", false }
func (noCookies) Expire(string)                {}
