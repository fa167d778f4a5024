// Command shotsync registers shots with the production tracker and lays out
// their local working folders, from a single shot code or a spreadsheet.
package main
