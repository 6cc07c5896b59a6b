package source

import "time"

// timeNow is indirected so Tune's idempotence window can be exercised
// deterministically from tests without a real clock.
var timeNow = time.Now
