package vixen

import "net/url"

// pollURL builds the request URL for a poll. Nothing is escaped: the
// endpoint reads the callback reference back verbatim.
func pollURL(location, param, ref string) string {
	return location + "?" + param + "=" + ref
}

// signalURL builds the request URL for a signal. The payload is appended as
// given unless escape is set.
func signalURL(location, param, data string, escape bool) string {
	if escape {
		data = url.QueryEscape(data)
	}
	return location + "?" + param + "=" + data
}
