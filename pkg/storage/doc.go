// Package storage writes username list files.
//
// The Manager owns one output directory. It remembers which lists already
// exist there so callers can refuse to clobber a list the user is still
// working through, and it writes every list through a temporary file and a
// rename so a concurrent reader never sees half a list.
//
// Usage:
//
//	manager, err := storage.NewManager("exports")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !manager.Exists("unfollow_list") {
//	    path, err := manager.SaveList(strings.NewReader("alice\nbob\n"), "unfollow_list.txt")
//	    if err != nil {
//	        log.Printf("Failed to save list: %v", err)
//	    }
//	    fmt.Println("wrote", path)
//	}
package storage
