// Package pst is the public, read-only surface over Outlook PST/OST files.
//
// Open a file, then navigate: the message store and root folder hang off the
// File; folders yield sub-folders and a cursor over their contents; messages
// expose typed property accessors plus their recipient and attachment
// tables. Message-class dispatch returns the specific entity type (contact,
// appointment, task, activity) where one applies.
//
// Example:
//
//	f, _ := pst.Open("mailbox.ost", types.OpenOptions{})
//	defer f.Close()
//	root, _ := f.RootFolder()
//	for _, sub := range must(root.SubFolders()) {
//	    name, _ := sub.DisplayName()
//	    fmt.Println(name)
//	}
package pst
