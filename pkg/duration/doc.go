/*
Package duration parses the window sizes accepted by the limiter.

A window size is either a number of milliseconds or a string made of a
non-negative integer, an optional single space, and a unit:

	ms  milliseconds
	s   seconds
	m   minutes
	h   hours
	d   days

Examples:

	ms, _ := duration.Parse("10s")   // 10000
	ms, _ = duration.Parse("5 m")    // 300000
	ms, _ = duration.Parse(60000)    // 60000
	_, err := duration.Parse("1w")   // *ParseError

Anything else, including fractional values, negative numbers and unknown
units, fails with a *ParseError.
*/
package duration
