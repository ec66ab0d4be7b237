// Package reminder implements the deadline reminder cycle for review
// assignments.
//
// A cycle lists every active assignment, evaluates which reminder threshold
// (if any) it has reached, sends one notification per reached threshold and
// only then persists the matching flag. Storage and delivery are reached
// through the Store and Notifier interfaces so the package has no knowledge
// of the database or the email provider.
package reminder
