package rx

// Bind forwards every value and the completion of src into dst.
// Releasing the returned handle detaches dst without completing it.
func Bind[T any](src Source[T], dst Sink[T]) *Handle {
	return src.Subscribe(Observer[T]{
		OnNext:     dst.Send,
		OnComplete: dst.Complete,
	})
}

// Map derives a source whose values are fn applied to the values of src.
// fn runs once per value per subscriber, on the sending goroutine.
func Map[T, U any](src Source[T], fn func(T) U) Source[U] {
	return mapped[T, U]{src: src, fn: fn}
}

type mapped[T, U any] struct {
	src Source[T]
	fn  func(T) U
}

func (m mapped[T, U]) Subscribe(observer Observer[U]) *Handle {
	return m.src.Subscribe(Observer[T]{
		OnNext: func(v T) {
			if observer.OnNext != nil {
				observer.OnNext(m.fn(v))
			}
		},
		OnComplete: observer.OnComplete,
	})
}
