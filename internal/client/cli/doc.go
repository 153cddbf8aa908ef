// Package cli implements the interactive bottlemail client: a line-oriented
// REPL over a services.Session plus a background goroutine that polls for
// arriving letters.
//
// Commands
//
//	help                 list commands
//	status               identity, server, delivery and letterbox summary
//	write                compose a draft (title, then body ending on an empty line)
//	send                 send the current draft
//	check                poll for a new letter now
//	tap                  tap the arrived bottle; enough taps open it
//	open                 open the arrived letter straight away
//	ack                  confirm the opened letter and file it
//	list                 list the letterbox, newest first
//	read <n|id>          re-read a filed letter
//	close                close the letter being read
//	prefs                show letter preferences
//	setprefs             pick an emotion from the wheel and a custom wish
//	server [url]         show or change the server address
//	exit | quit          leave
package cli
