package models

import "strings"

// Folder is one of the fixed set of mailbox folders Mailward exposes.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderDrafts  Folder = "drafts"
	FolderDeleted Folder = "deleted"
	FolderArchive Folder = "archive"
	FolderJunk    Folder = "junk"
)

// folderMailboxes maps each folder to the provider's mailbox name.
var folderMailboxes = map[Folder]string{
	FolderInbox:   "INBOX",
	FolderSent:    "Sent",
	FolderDrafts:  "Drafts",
	FolderDeleted: "Trash",
	FolderArchive: "Archive",
	FolderJunk:    "Junk",
}

// ParseFolder matches a folder name case-insensitively against the closed set.
func ParseFolder(name string) (Folder, bool) {
	f := Folder(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := folderMailboxes[f]; !ok {
		return "", false
	}
	return f, true
}

// Mailbox returns the IMAP mailbox name for the folder.
func (f Folder) Mailbox() string {
	return folderMailboxes[f]
}

// Folders returns all known folders.
func Folders() []Folder {
	return []Folder{FolderInbox, FolderSent, FolderDrafts, FolderDeleted, FolderArchive, FolderJunk}
}
