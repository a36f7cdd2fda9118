/*
Package runtime is the dialog step runner.

The Engine advances a domain.State through a script one turn at a time.
Statements are delivered and chained within the turn; a prompt halts the turn
until the next reply. Redirects (goto, repeat, hook redirects, child and
replacement dialogs) are processed by a loop rather than recursion and are
capped per turn by DefaultRedirectLimit.

Child dialogs form a stack through State.Child: replies always go to the
innermost frame, and a completed child hands its variables to the parent,
which resumes on the line after the one that started it.
*/
package runtime
