// Package shotcode turns compact shot codes such as EP04_S003_0010 into the
// show → episode → sequence → shot identity used by the tracker reconciler and
// the local layout builder.
//
// Parse applies the underscore rule table (three parts: episode, sequence,
// shot; two parts: sequence, shot; one part: shot). Normalize rebuilds a
// code from spreadsheet-style input, cleaning stray whitespace, hyphens, and
// full-width characters before joining the present fields in order.
package shotcode
