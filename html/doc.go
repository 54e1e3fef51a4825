package html

// html is responsible for pulling useful bits, such as verification links,
// out of the HTML bodies of captured mail. It works on decoded HTML strings
// and doesn't know how to find the HTML part of a message--see the mailhog
// package for that.
