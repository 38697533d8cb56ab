package responses

// Guards classify native events for the translation engine. Each predicate
// is stateless and total: it checks every field the reducer will rely on,
// not just the type tag, so a structurally incomplete event (for example a
// delta without an item ID) is rejected rather than misclassified. A false
// result is the normal answer for "not this kind"; guards never fault.

// IsTextDelta reports whether ev is a well-formed output text delta.
func IsTextDelta(ev *Event) bool {
	return ev != nil && ev.Type == EventOutputTextDelta && ev.ItemID != ""
}

// IsFunctionCallAdded reports whether ev announces a new function call item.
func IsFunctionCallAdded(ev *Event) bool {
	return ev != nil && ev.Type == EventOutputItemAdded &&
		ev.Item != nil && ev.Item.Type == ItemTypeFunctionCall && ev.Item.ID != ""
}

// IsFunctionCallArgsDelta reports whether ev carries an arguments fragment.
func IsFunctionCallArgsDelta(ev *Event) bool {
	return ev != nil && ev.Type == EventFunctionCallArgsDelta && ev.ItemID != ""
}

// IsFunctionCallDone reports whether ev finalizes a function call item.
func IsFunctionCallDone(ev *Event) bool {
	return ev != nil && ev.Type == EventOutputItemDone &&
		ev.Item != nil && ev.Item.Type == ItemTypeFunctionCall && ev.Item.ID != ""
}

// IsCompleted reports whether ev is a well-formed completion marker.
func IsCompleted(ev *Event) bool {
	return ev != nil && ev.Type == EventResponseCompleted && ev.Response != nil
}

// IsIncomplete reports whether ev marks an early-stopped response.
func IsIncomplete(ev *Event) bool {
	return ev != nil && ev.Type == EventResponseIncomplete && ev.Response != nil
}

// IsFailed reports whether ev marks a failed response.
func IsFailed(ev *Event) bool {
	return ev != nil && ev.Type == EventResponseFailed
}
